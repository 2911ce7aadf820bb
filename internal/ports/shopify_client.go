package ports

import (
	"context"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the interface for Shopify API operations used by the
// ingestion core. Listing calls return the library's pagination descriptor;
// callers follow Pagination.NextPageOptions until it is nil.
type ShopifyClient interface {
	// Authentication
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Resource listing (cursor-paginated)
	ListCustomers(ctx context.Context, shop string, accessToken string, options interface{}) ([]goshopify.Customer, *goshopify.Pagination, error)
	ListProducts(ctx context.Context, shop string, accessToken string, options interface{}) ([]goshopify.Product, *goshopify.Pagination, error)
	ListOrders(ctx context.Context, shop string, accessToken string, options interface{}) ([]goshopify.Order, *goshopify.Pagination, error)

	// Resource counts (lightweight, used by diagnostics and metric fallback)
	CountCustomers(ctx context.Context, shop string, accessToken string) (int, error)
	CountOrders(ctx context.Context, shop string, accessToken string) (int, error)

	// Webhook subscription API
	ListWebhooks(ctx context.Context, shop string, accessToken string) ([]goshopify.Webhook, error)
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*goshopify.Webhook, error)
	UpdateWebhook(ctx context.Context, shop string, accessToken string, webhookID uint64, address string) (*goshopify.Webhook, error)
}

// PageOptions carries the query parameters for a first-page listing call.
// Continuation pages reuse the NextPageOptions the library returns, which
// encode the page_info cursor instead.
type PageOptions struct {
	Limit int `url:"limit,omitempty"`
}

// OrderPageOptions adds the order-specific parameters. Fields requests a
// narrow projection; Shopify rejects it on shops without protected customer
// data approval, in which case callers retry without it.
type OrderPageOptions struct {
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
	Fields string `url:"fields,omitempty"`
}

// SyncLocker guards backfill runs so at most one is in flight per key.
// TryLock returns ok=false when another run holds the key; on success the
// caller must invoke the returned release func.
type SyncLocker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}
