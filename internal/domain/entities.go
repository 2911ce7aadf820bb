package domain

import "time"

// Collection identifies one of the synced Shopify resource collections.
type Collection string

const (
	CollectionCustomers Collection = "customers"
	CollectionProducts  Collection = "products"
	CollectionOrders    Collection = "orders"
)

// Customer is a tenant-scoped Shopify customer.
// (TenantID, ShopifyID) uniquely identifies a row and is the upsert key.
type Customer struct {
	TenantID  string    `json:"tenant_id" bson:"tenant_id"`
	ShopifyID string    `json:"shopify_id" bson:"shopify_id"`
	Email     string    `json:"email" bson:"email"`
	FirstName string    `json:"first_name" bson:"first_name"`
	LastName  string    `json:"last_name" bson:"last_name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Product is a tenant-scoped Shopify product. Price is the first variant's
// price kept as an exact decimal string.
type Product struct {
	TenantID  string    `json:"tenant_id" bson:"tenant_id"`
	ShopifyID string    `json:"shopify_id" bson:"shopify_id"`
	Title     string    `json:"title" bson:"title"`
	Price     string    `json:"price" bson:"price"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Order is a tenant-scoped Shopify order. TotalPrice is an exact decimal
// string end-to-end; CustomerShopifyID is a lookup-only back-reference and
// may be empty when the order has no attached customer.
type Order struct {
	TenantID          string    `json:"tenant_id" bson:"tenant_id"`
	ShopifyID         string    `json:"shopify_id" bson:"shopify_id"`
	TotalPrice        string    `json:"total_price" bson:"total_price"`
	CustomerShopifyID string    `json:"customer_shopify_id,omitempty" bson:"customer_shopify_id,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}
