package ports

import (
	"context"
	"time"

	"shopify-insights-core/internal/domain"
)

// TenantRepository defines the interface for tenant persistence.
// UpsertByShopDomain is keyed by the unique shop domain so repeated OAuth
// callbacks for the same shop never create duplicates.
type TenantRepository interface {
	UpsertByShopDomain(ctx context.Context, shopDomain, accessToken string) (*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
}

// CustomerRepository defines the interface for customer persistence.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *domain.Customer) error
	Get(ctx context.Context, tenantID, shopifyID string) (*domain.Customer, error)
	Count(ctx context.Context, tenantID string) (int64, error)
}

// ProductRepository defines the interface for product persistence.
type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) error
	Get(ctx context.Context, tenantID, shopifyID string) (*domain.Product, error)
	Count(ctx context.Context, tenantID string) (int64, error)
}

// OrderRepository defines the interface for order persistence.
// List returns a tenant's orders, optionally bounded by an inclusive
// created-at window; a nil bound leaves that side open.
type OrderRepository interface {
	Upsert(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, tenantID, shopifyID string) (*domain.Order, error)
	Count(ctx context.Context, tenantID string) (int64, error)
	List(ctx context.Context, tenantID string, from, to *time.Time) ([]*domain.Order, error)
}
