package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/infrastructure/metrics"
	"shopify-insights-core/internal/ports"

	"github.com/rs/zerolog"
)

const backfillPageLimit = 250

// orderFieldProjection captures the linked customer id without pulling full
// order objects. Shops without protected customer data approval reject it;
// SyncOrders falls back to a full fetch in that case.
const orderFieldProjection = "id,created_at,processed_at,total_price,customer"

// SyncService backfills a tenant's collections from Shopify's listing
// endpoints, applying the same upsert as the webhook path. Runs are guarded
// by a single-flight lock per (tenant, collection) so a manual trigger and
// the scheduler cannot double-run.
type SyncService struct {
	client    ports.ShopifyClient
	customers ports.CustomerRepository
	products  ports.ProductRepository
	orders    ports.OrderRepository
	locker    ports.SyncLocker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewSyncService creates a new backfill service.
func NewSyncService(
	client ports.ShopifyClient,
	customers ports.CustomerRepository,
	products ports.ProductRepository,
	orders ports.OrderRepository,
	locker ports.SyncLocker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		client:    client,
		customers: customers,
		products:  products,
		orders:    orders,
		locker:    locker,
		metrics:   m,
		logger:    logger,
	}
}

// SyncAll backfills customers, products, and orders for the tenant.
// A recognized protected-customer-data refusal is swallowed for the affected
// collection so the remaining ones still complete; any other failure aborts
// and propagates.
func (s *SyncService) SyncAll(ctx context.Context, tenant *domain.Tenant, skipCustomers bool) error {
	if !skipCustomers {
		if err := s.SyncCustomers(ctx, tenant); err != nil && !s.swallowRestricted(tenant, domain.CollectionCustomers, err) {
			return err
		}
	}
	if err := s.SyncProducts(ctx, tenant); err != nil {
		return err
	}
	if err := s.SyncOrders(ctx, tenant); err != nil && !s.swallowRestricted(tenant, domain.CollectionOrders, err) {
		return err
	}
	return nil
}

// swallowRestricted logs and absorbs permission refusals; everything else
// propagates to the caller.
func (s *SyncService) swallowRestricted(tenant *domain.Tenant, collection domain.Collection, err error) bool {
	var rde *domain.RestrictedDataError
	if !errors.As(err, &rde) {
		return false
	}
	s.logger.Warn().
		Str("shop", tenant.ShopDomain).
		Str("collection", string(collection)).
		Err(err).
		Msg("Skipping collection backfill due to protected customer data restrictions")
	return true
}

// SyncCustomers pages through the customer listing and upserts every row.
func (s *SyncService) SyncCustomers(ctx context.Context, tenant *domain.Tenant) error {
	return s.runLocked(ctx, tenant, domain.CollectionCustomers, func(ctx context.Context) error {
		var opts interface{} = ports.PageOptions{Limit: backfillPageLimit}
		for {
			customers, pagination, err := s.client.ListCustomers(ctx, tenant.ShopDomain, tenant.AccessToken, opts)
			if err != nil {
				return s.classify(domain.CollectionCustomers, "list customers", err)
			}
			for i := range customers {
				if err := s.customers.Upsert(ctx, customerFromShopify(tenant.ID, &customers[i])); err != nil {
					return err
				}
				s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionCustomers), "backfill").Inc()
			}
			if pagination == nil || pagination.NextPageOptions == nil {
				return nil
			}
			opts = pagination.NextPageOptions
		}
	})
}

// SyncProducts pages through the product listing and upserts every row.
func (s *SyncService) SyncProducts(ctx context.Context, tenant *domain.Tenant) error {
	return s.runLocked(ctx, tenant, domain.CollectionProducts, func(ctx context.Context) error {
		var opts interface{} = ports.PageOptions{Limit: backfillPageLimit}
		for {
			products, pagination, err := s.client.ListProducts(ctx, tenant.ShopDomain, tenant.AccessToken, opts)
			if err != nil {
				return s.classify(domain.CollectionProducts, "list products", err)
			}
			for i := range products {
				if err := s.products.Upsert(ctx, productFromShopify(tenant.ID, &products[i])); err != nil {
					return err
				}
				s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionProducts), "backfill").Inc()
			}
			if pagination == nil || pagination.NextPageOptions == nil {
				return nil
			}
			opts = pagination.NextPageOptions
		}
	})
}

// SyncOrders pages through the order listing and upserts every row. The
// first page is requested with a narrow field projection; if Shopify rejects
// the projection the fetch retries with full objects, producing equivalent
// rows either way.
func (s *SyncService) SyncOrders(ctx context.Context, tenant *domain.Tenant) error {
	return s.runLocked(ctx, tenant, domain.CollectionOrders, func(ctx context.Context) error {
		var opts interface{} = ports.OrderPageOptions{
			Limit:  backfillPageLimit,
			Status: "any",
			Fields: orderFieldProjection,
		}

		orders, pagination, err := s.client.ListOrders(ctx, tenant.ShopDomain, tenant.AccessToken, opts)
		if err != nil {
			s.logger.Debug().
				Str("shop", tenant.ShopDomain).
				Err(err).
				Msg("Projected order listing rejected, retrying with full objects")
			opts = ports.OrderPageOptions{Limit: backfillPageLimit, Status: "any"}
			orders, pagination, err = s.client.ListOrders(ctx, tenant.ShopDomain, tenant.AccessToken, opts)
			if err != nil {
				return s.classify(domain.CollectionOrders, "list orders", err)
			}
		}

		for {
			for i := range orders {
				if err := s.orders.Upsert(ctx, orderFromShopify(tenant.ID, &orders[i])); err != nil {
					return err
				}
				s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionOrders), "backfill").Inc()
			}
			if pagination == nil || pagination.NextPageOptions == nil {
				return nil
			}
			orders, pagination, err = s.client.ListOrders(ctx, tenant.ShopDomain, tenant.AccessToken, pagination.NextPageOptions)
			if err != nil {
				return s.classify(domain.CollectionOrders, "list orders", err)
			}
		}
	})
}

// runLocked holds the (tenant, collection) single-flight lock for the
// duration of fn and records the run outcome.
func (s *SyncService) runLocked(ctx context.Context, tenant *domain.Tenant, collection domain.Collection, fn func(context.Context) error) error {
	key := tenant.ID + ":" + string(collection)
	release, ok, err := s.locker.TryLock(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSyncInProgress, key)
	}
	defer release()

	if err := fn(ctx); err != nil {
		s.metrics.BackfillRuns.WithLabelValues(string(collection), "error").Inc()
		return err
	}
	s.metrics.BackfillRuns.WithLabelValues(string(collection), "ok").Inc()
	return nil
}

func (s *SyncService) classify(collection domain.Collection, op string, err error) error {
	if domain.IsRestrictedData(err) {
		return &domain.RestrictedDataError{Collection: collection, Err: err}
	}
	return &domain.TransientUpstreamError{Op: op, Err: err}
}
