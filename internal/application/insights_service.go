package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultTopCustomers = 5

const defaultRecentOrders = 10

// liveRevenueSampleLimit bounds the order sample fetched for the live
// revenue estimate when the local store is empty.
const liveRevenueSampleLimit = 50

// Summary is the tenant-scoped headline view.
type Summary struct {
	Customers int64  `json:"customers"`
	Orders    int64  `json:"orders"`
	Revenue   string `json:"revenue"`
}

// DailyOrders is one day of the order time series.
type DailyOrders struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Revenue string `json:"revenue"`
}

// RecentOrder is one row of the recent-orders debug listing.
type RecentOrder struct {
	ShopifyID  string    `json:"shopify_id"`
	TotalPrice string    `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// TopCustomer is one row of the top-spenders view. Name and Email stay empty
// when no stored profile matches the customer reference.
type TopCustomer struct {
	ShopifyID string `json:"shopify_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Spend     string `json:"spend"`
}

// InsightsService computes the summary, time-series, and top-N views from
// the entity store, falling back to live Shopify queries when the store is
// empty. Fallback results affect only the current response; nothing is
// persisted.
type InsightsService struct {
	customers ports.CustomerRepository
	orders    ports.OrderRepository
	client    ports.ShopifyClient
	logger    zerolog.Logger
}

// NewInsightsService creates a new metrics aggregation service.
func NewInsightsService(
	customers ports.CustomerRepository,
	orders ports.OrderRepository,
	client ports.ShopifyClient,
	logger zerolog.Logger,
) *InsightsService {
	return &InsightsService{
		customers: customers,
		orders:    orders,
		client:    client,
		logger:    logger,
	}
}

// Summary returns customer count, order count, and revenue for the tenant.
// When no customers are stored the count derives from distinct customer
// references across orders; when both counts are zero the numbers come from
// lightweight live Shopify queries so a fresh install is not blank.
func (s *InsightsService) Summary(ctx context.Context, tenant *domain.Tenant) (*Summary, error) {
	customerCount, err := s.customers.Count(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	orderCount, err := s.orders.Count(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := s.orders.List(ctx, tenant.ID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	revenue := decimal.Zero
	distinctRefs := make(map[string]struct{})
	for _, o := range orders {
		revenue = revenue.Add(parseMoney(o.TotalPrice))
		if o.CustomerShopifyID != "" {
			distinctRefs[o.CustomerShopifyID] = struct{}{}
		}
	}

	if customerCount == 0 {
		customerCount = int64(len(distinctRefs))
	}

	if customerCount == 0 && orderCount == 0 {
		if live := s.liveSummary(ctx, tenant); live != nil {
			return live, nil
		}
	}

	return &Summary{
		Customers: customerCount,
		Orders:    orderCount,
		Revenue:   revenue.String(),
	}, nil
}

// liveSummary queries Shopify directly for counts and a bounded order sample
// to estimate revenue. Any failure returns nil and the caller serves the
// store-derived zeros instead.
func (s *InsightsService) liveSummary(ctx context.Context, tenant *domain.Tenant) *Summary {
	customerCount, err := s.client.CountCustomers(ctx, tenant.ShopDomain, tenant.AccessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", tenant.ShopDomain).Msg("Live customer count failed")
		customerCount = 0
	}
	orderCount, err := s.client.CountOrders(ctx, tenant.ShopDomain, tenant.AccessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", tenant.ShopDomain).Msg("Live order count failed")
		orderCount = 0
	}
	if customerCount == 0 && orderCount == 0 {
		return nil
	}

	revenue := decimal.Zero
	sample, _, err := s.client.ListOrders(ctx, tenant.ShopDomain, tenant.AccessToken, ports.OrderPageOptions{
		Limit:  liveRevenueSampleLimit,
		Status: "any",
		Fields: "id,total_price,created_at",
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", tenant.ShopDomain).Msg("Live revenue sample failed")
	} else {
		for i := range sample {
			if sample[i].TotalPrice != nil {
				revenue = revenue.Add(*sample[i].TotalPrice)
			}
		}
	}

	return &Summary{
		Customers: int64(customerCount),
		Orders:    int64(orderCount),
		Revenue:   revenue.String(),
	}
}

// OrdersByDate groups the tenant's orders by UTC calendar day, ascending.
// from/to bound the creation timestamp inclusively; days without orders are
// not synthesized.
func (s *InsightsService) OrdersByDate(ctx context.Context, tenantID string, from, to *time.Time) ([]DailyOrders, error) {
	orders, err := s.orders.List(ctx, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	type bucket struct {
		count   int
		revenue decimal.Decimal
	}
	grouped := make(map[string]*bucket)
	for _, o := range orders {
		key := o.CreatedAt.UTC().Format("2006-01-02")
		b, ok := grouped[key]
		if !ok {
			b = &bucket{}
			grouped[key] = b
		}
		b.count++
		b.revenue = b.revenue.Add(parseMoney(o.TotalPrice))
	}

	series := make([]DailyOrders, 0, len(grouped))
	for date, b := range grouped {
		series = append(series, DailyOrders{
			Date:    date,
			Orders:  b.count,
			Revenue: b.revenue.String(),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// TopCustomers accumulates spend per distinct customer reference across the
// tenant's orders and returns the top limit rows, descending by spend with
// ties broken by ascending Shopify id. Profiles resolve best effort.
func (s *InsightsService) TopCustomers(ctx context.Context, tenantID string, limit int) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = defaultTopCustomers
	}

	orders, err := s.orders.List(ctx, tenantID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	spend := make(map[string]decimal.Decimal)
	for _, o := range orders {
		if o.CustomerShopifyID == "" {
			continue
		}
		spend[o.CustomerShopifyID] = spend[o.CustomerShopifyID].Add(parseMoney(o.TotalPrice))
	}

	type ranked struct {
		id    string
		spend decimal.Decimal
	}
	rankings := make([]ranked, 0, len(spend))
	for id, total := range spend {
		rankings = append(rankings, ranked{id: id, spend: total})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if cmp := rankings[i].spend.Cmp(rankings[j].spend); cmp != 0 {
			return cmp > 0
		}
		return rankings[i].id < rankings[j].id
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}

	results := make([]TopCustomer, 0, len(rankings))
	for _, r := range rankings {
		row := TopCustomer{
			ShopifyID: r.id,
			Spend:     r.spend.String(),
		}
		customer, err := s.customers.Get(ctx, tenantID, r.id)
		if err != nil {
			s.logger.Warn().Err(err).Str("customerId", r.id).Msg("Customer profile lookup failed")
		} else if customer != nil {
			row.Email = customer.Email
			row.Name = strings.TrimSpace(customer.FirstName + " " + customer.LastName)
		}
		results = append(results, row)
	}
	return results, nil
}

// RecentOrders returns the tenant's newest stored orders, newest first.
// A debug aid for checking what ingestion and backfill actually persisted.
func (s *InsightsService) RecentOrders(ctx context.Context, tenantID string, limit int) ([]RecentOrder, error) {
	if limit <= 0 {
		limit = defaultRecentOrders
	}

	orders, err := s.orders.List(ctx, tenantID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if len(orders) > limit {
		orders = orders[:limit]
	}

	recent := make([]RecentOrder, 0, len(orders))
	for _, o := range orders {
		recent = append(recent, RecentOrder{
			ShopifyID:  o.ShopifyID,
			TotalPrice: o.TotalPrice,
			CreatedAt:  o.CreatedAt,
		})
	}
	return recent, nil
}

// parseMoney parses a stored decimal string, treating anything unparsable as
// zero rather than failing an aggregate.
func parseMoney(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
