package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entityKey is the compound upsert filter shared by all synced collections.
// Together with the unique (tenant_id, shopify_id) index it is the
// idempotence key for every write.
func entityKey(tenantID, shopifyID string) bson.M {
	return bson.M{"tenant_id": tenantID, "shopify_id": shopifyID}
}

func upsertOpts() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}

// MongoCustomerRepository implements CustomerRepository using MongoDB.
type MongoCustomerRepository struct {
	collection *mongo.Collection
}

// NewMongoCustomerRepository creates a new MongoDB customer repository.
func NewMongoCustomerRepository(db *mongo.Database) ports.CustomerRepository {
	return &MongoCustomerRepository{collection: db.Collection("customers")}
}

// Upsert creates or overwrites the customer keyed by (tenant_id, shopify_id).
func (r *MongoCustomerRepository) Upsert(ctx context.Context, customer *domain.Customer) error {
	update := bson.M{"$set": customer}
	_, err := r.collection.UpdateOne(ctx, entityKey(customer.TenantID, customer.ShopifyID), update, upsertOpts())
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

// Get retrieves a customer by its tenant-scoped Shopify id.
func (r *MongoCustomerRepository) Get(ctx context.Context, tenantID, shopifyID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.collection.FindOne(ctx, entityKey(tenantID, shopifyID)).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// Count returns the number of customers stored for the tenant.
func (r *MongoCustomerRepository) Count(ctx context.Context, tenantID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// MongoProductRepository implements ProductRepository using MongoDB.
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository creates a new MongoDB product repository.
func NewMongoProductRepository(db *mongo.Database) ports.ProductRepository {
	return &MongoProductRepository{collection: db.Collection("products")}
}

// Upsert creates or overwrites the product keyed by (tenant_id, shopify_id).
func (r *MongoProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	update := bson.M{"$set": product}
	_, err := r.collection.UpdateOne(ctx, entityKey(product.TenantID, product.ShopifyID), update, upsertOpts())
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// Get retrieves a product by its tenant-scoped Shopify id.
func (r *MongoProductRepository) Get(ctx context.Context, tenantID, shopifyID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, entityKey(tenantID, shopifyID)).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// Count returns the number of products stored for the tenant.
func (r *MongoProductRepository) Count(ctx context.Context, tenantID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// MongoOrderRepository implements OrderRepository using MongoDB.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository.
func NewMongoOrderRepository(db *mongo.Database) ports.OrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

// Upsert creates or overwrites the order keyed by (tenant_id, shopify_id).
func (r *MongoOrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	update := bson.M{"$set": order}
	_, err := r.collection.UpdateOne(ctx, entityKey(order.TenantID, order.ShopifyID), update, upsertOpts())
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// Get retrieves an order by its tenant-scoped Shopify id.
func (r *MongoOrderRepository) Get(ctx context.Context, tenantID, shopifyID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, entityKey(tenantID, shopifyID)).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// Count returns the number of orders stored for the tenant.
func (r *MongoOrderRepository) Count(ctx context.Context, tenantID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// List retrieves a tenant's orders, optionally bounded by an inclusive
// created-at window.
func (r *MongoOrderRepository) List(ctx context.Context, tenantID string, from, to *time.Time) ([]*domain.Order, error) {
	filter := bson.M{"tenant_id": tenantID}
	if from != nil || to != nil {
		window := bson.M{}
		if from != nil {
			window["$gte"] = *from
		}
		if to != nil {
			window["$lte"] = *to
		}
		filter["created_at"] = window
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orders, nil
}
