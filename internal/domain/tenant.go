package domain

import (
	"strings"
	"time"
)

// ShopDomainSuffix is the suffix every Shopify shop domain must carry.
const ShopDomainSuffix = ".myshopify.com"

// Tenant represents one onboarded shop. It is the scoping boundary for all
// ingested entities and owns its Shopify access token exclusively.
type Tenant struct {
	ID          string    `json:"id" bson:"_id"`
	ShopDomain  string    `json:"shop_domain" bson:"shop_domain"` // Unique across tenants
	AccessToken string    `json:"-" bson:"access_token"`          // Never serialized to API responses
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ValidShopDomain reports whether shop looks like a Shopify shop domain.
func ValidShopDomain(shop string) bool {
	return shop != "" &&
		strings.HasSuffix(shop, ShopDomainSuffix) &&
		len(shop) > len(ShopDomainSuffix)
}
