package application_test

import (
	"context"
	"testing"
	"time"

	"shopify-insights-core/internal/application"
	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/infrastructure/metrics"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insightsFixture struct {
	service   *application.InsightsService
	ingest    *application.IngestService
	client    *fakeShopify
	customers *memCustomers
	orders    *memOrders
	tenant    *domain.Tenant
}

func newInsightsFixture(t *testing.T, client *fakeShopify) *insightsFixture {
	t.Helper()
	tenants := newMemTenants()
	customers := newMemCustomers()
	orders := newMemOrders()
	tenant := tenants.add(&domain.Tenant{ID: "t1", ShopDomain: "acme.myshopify.com"})
	return &insightsFixture{
		service:   application.NewInsightsService(customers, orders, client, zerolog.Nop()),
		ingest:    application.NewIngestService(tenants, customers, newMemProducts(), orders, metrics.NewNop(), zerolog.Nop()),
		client:    client,
		customers: customers,
		orders:    orders,
		tenant:    tenant,
	}
}

func (f *insightsFixture) addOrder(t *testing.T, id, total, customerID, day string) {
	t.Helper()
	created, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	require.NoError(t, f.orders.Upsert(context.Background(), &domain.Order{
		TenantID:          "t1",
		ShopifyID:         id,
		TotalPrice:        total,
		CustomerShopifyID: customerID,
		CreatedAt:         created,
	}))
}

// An order delivery shows up in the summary, and a later update for the same
// order replaces its revenue contribution instead of double counting it.
func TestSummary_ReflectsWebhookUpdates(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})

	require.NoError(t, f.ingest.Ingest(context.Background(), "orders/create", "acme.myshopify.com",
		[]byte(`{"id":100,"total_price":"19.99","created_at":"2026-03-01T10:00:00Z"}`)))

	summary, err := f.service.Summary(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Orders)
	assert.Equal(t, "19.99", summary.Revenue)

	require.NoError(t, f.ingest.Ingest(context.Background(), "orders/updated", "acme.myshopify.com",
		[]byte(`{"id":100,"total_price":"29.99","created_at":"2026-03-01T10:00:00Z"}`)))

	summary, err = f.service.Summary(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Orders)
	assert.Equal(t, "29.99", summary.Revenue)
}

func TestSummary_CustomerCountFallsBackToOrderReferences(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "10.00", "7", "2026-03-01")
	f.addOrder(t, "101", "20.00", "7", "2026-03-02")
	f.addOrder(t, "102", "5.00", "8", "2026-03-02")
	f.addOrder(t, "103", "1.00", "", "2026-03-03")

	summary, err := f.service.Summary(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Customers, "distinct non-empty references")
	assert.Equal(t, int64(4), summary.Orders)
	assert.Equal(t, "36", summary.Revenue)
}

func TestSummary_LiveFallbackWhenStoreIsEmpty(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{
		customerCount: 12,
		orderCount:    3,
		orderPages: [][]goshopify.Order{{
			{Id: 1, TotalPrice: money("10.00")},
			{Id: 2, TotalPrice: money("15.50")},
		}},
	})

	summary, err := f.service.Summary(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(12), summary.Customers)
	assert.Equal(t, int64(3), summary.Orders)
	assert.Equal(t, "25.5", summary.Revenue)
}

func TestSummary_LiveFallbackSkippedWhenUpstreamIsAlsoEmpty(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})

	summary, err := f.service.Summary(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Zero(t, summary.Customers)
	assert.Zero(t, summary.Orders)
	assert.Equal(t, "0", summary.Revenue)
}

func TestOrdersByDate_GroupsAndSortsAscending(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "10.00", "", "2026-03-02")
	f.addOrder(t, "101", "20.00", "", "2026-03-02")
	f.addOrder(t, "102", "5.00", "", "2026-03-01")

	series, err := f.service.OrdersByDate(context.Background(), "t1", nil, nil)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, application.DailyOrders{Date: "2026-03-01", Orders: 1, Revenue: "5"}, series[0])
	assert.Equal(t, application.DailyOrders{Date: "2026-03-02", Orders: 2, Revenue: "30"}, series[1])
}

func TestOrdersByDate_WindowIsInclusive(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "1.00", "", "2026-03-01")
	f.addOrder(t, "101", "1.00", "", "2026-03-02")
	f.addOrder(t, "102", "1.00", "", "2026-03-03")

	from, _ := time.Parse("2006-01-02", "2026-03-02")
	to, _ := time.Parse("2006-01-02", "2026-03-03")
	series, err := f.service.OrdersByDate(context.Background(), "t1", &from, &to)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-02", series[0].Date)
	assert.Equal(t, "2026-03-03", series[1].Date)
}

func TestTopCustomers_RanksBySpendWithStableTies(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "10.00", "9", "2026-03-01")
	f.addOrder(t, "101", "30.00", "7", "2026-03-01")
	f.addOrder(t, "102", "10.00", "8", "2026-03-01")
	require.NoError(t, f.customers.Upsert(context.Background(), &domain.Customer{
		TenantID: "t1", ShopifyID: "7", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe",
	}))

	top, err := f.service.TopCustomers(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "7", top[0].ShopifyID)
	assert.Equal(t, "30", top[0].Spend)
	assert.Equal(t, "jane@example.com", top[0].Email)
	assert.Equal(t, "Jane Doe", top[0].Name)

	// equal spend ties break on ascending id; unresolved profiles stay blank
	assert.Equal(t, "8", top[1].ShopifyID)
	assert.Equal(t, "9", top[2].ShopifyID)
	assert.Empty(t, top[1].Email)
}

func TestTopCustomers_LimitTruncates(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "10.00", "7", "2026-03-01")
	f.addOrder(t, "101", "20.00", "8", "2026-03-01")

	top, err := f.service.TopCustomers(context.Background(), "t1", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "8", top[0].ShopifyID)
}

func TestRecentOrders_NewestFirstWithLimit(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "1.00", "", "2026-03-01")
	f.addOrder(t, "101", "2.00", "", "2026-03-03")
	f.addOrder(t, "102", "3.00", "", "2026-03-02")

	recent, err := f.service.RecentOrders(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "101", recent[0].ShopifyID)
	assert.Equal(t, "102", recent[1].ShopifyID)
	assert.Equal(t, "100", recent[2].ShopifyID)

	recent, err = f.service.RecentOrders(context.Background(), "t1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "101", recent[0].ShopifyID)
	assert.Equal(t, "2.00", recent[0].TotalPrice, "stored amount passes through untouched")
}

func TestTopCustomers_UnparsableAmountsCountAsZero(t *testing.T) {
	f := newInsightsFixture(t, &fakeShopify{})
	f.addOrder(t, "100", "not-a-number", "7", "2026-03-01")
	f.addOrder(t, "101", "4.00", "7", "2026-03-01")

	top, err := f.service.TopCustomers(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "4", top[0].Spend)
}
