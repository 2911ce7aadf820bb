package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTenantRepository implements TenantRepository using MongoDB.
type MongoTenantRepository struct {
	collection *mongo.Collection
}

// NewMongoTenantRepository creates a new MongoDB tenant repository.
func NewMongoTenantRepository(db *mongo.Database) ports.TenantRepository {
	return &MongoTenantRepository{
		collection: db.Collection("tenants"),
	}
}

// UpsertByShopDomain creates a tenant for the shop domain or rotates the
// access token of the existing one. The shop_domain unique index makes
// repeated callbacks for the same shop converge on a single row.
func (r *MongoTenantRepository) UpsertByShopDomain(ctx context.Context, shopDomain, accessToken string) (*domain.Tenant, error) {
	now := time.Now().UTC()

	filter := bson.M{"shop_domain": shopDomain}
	update := bson.M{
		"$set": bson.M{
			"access_token": accessToken,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"_id":         primitive.NewObjectID().Hex(),
			"shop_domain": shopDomain,
			"created_at":  now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var tenant domain.Tenant
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tenant); err != nil {
		return nil, fmt.Errorf("failed to upsert tenant: %w", err)
	}
	return &tenant, nil
}

// GetByID retrieves a tenant by id.
func (r *MongoTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tenant)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// GetByShopDomain retrieves a tenant by shop domain.
func (r *MongoTenantRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.collection.FindOne(ctx, bson.M{"shop_domain": shopDomain}).Decode(&tenant)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// List retrieves all tenants.
func (r *MongoTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []*domain.Tenant
	for cursor.Next(ctx) {
		var tenant domain.Tenant
		if err := cursor.Decode(&tenant); err != nil {
			return nil, fmt.Errorf("failed to decode tenant: %w", err)
		}
		tenants = append(tenants, &tenant)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return tenants, nil
}
