package application

import (
	"strconv"
	"strings"
	"time"

	"shopify-insights-core/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// Converters from Shopify API resources to stored rows. Money leaves these
// functions as exact decimal strings; wall-clock fallbacks apply only when
// the payload carries no timestamp at all.

func customerFromShopify(tenantID string, c *goshopify.Customer) *domain.Customer {
	return &domain.Customer{
		TenantID:  tenantID,
		ShopifyID: strconv.FormatUint(uint64(c.Id), 10),
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		CreatedAt: timestampOrNow(c.CreatedAt),
	}
}

func productFromShopify(tenantID string, p *goshopify.Product) *domain.Product {
	price := "0"
	if len(p.Variants) > 0 && p.Variants[0].Price != nil {
		price = p.Variants[0].Price.String()
	}
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	return &domain.Product{
		TenantID:  tenantID,
		ShopifyID: strconv.FormatUint(uint64(p.Id), 10),
		Title:     title,
		Price:     price,
		CreatedAt: timestampOrNow(p.CreatedAt),
	}
}

func orderFromShopify(tenantID string, o *goshopify.Order) *domain.Order {
	total := "0"
	if o.TotalPrice != nil {
		total = o.TotalPrice.String()
	}
	customerID := ""
	if o.Customer != nil && o.Customer.Id != 0 {
		customerID = strconv.FormatUint(uint64(o.Customer.Id), 10)
	}
	// created_at falls back to processed_at; some projected order payloads
	// only carry the latter.
	created := o.CreatedAt
	if created == nil {
		created = o.ProcessedAt
	}
	return &domain.Order{
		TenantID:          tenantID,
		ShopifyID:         strconv.FormatUint(uint64(o.Id), 10),
		TotalPrice:        total,
		CustomerShopifyID: customerID,
		CreatedAt:         timestampOrNow(created),
	}
}

func timestampOrNow(t *time.Time) time.Time {
	if t != nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
