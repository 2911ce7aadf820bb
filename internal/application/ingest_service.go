package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/infrastructure/metrics"
	"shopify-insights-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// IngestService applies verified webhook deliveries to the entity store.
// Every topic maps to exactly one idempotent upsert keyed by
// (tenant_id, shopify_id); redelivering an identical payload is a no-op and
// conflicting deliveries for the same id resolve last-write-wins.
type IngestService struct {
	tenants   ports.TenantRepository
	customers ports.CustomerRepository
	products  ports.ProductRepository
	orders    ports.OrderRepository
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewIngestService creates a new webhook ingest service.
func NewIngestService(
	tenants ports.TenantRepository,
	customers ports.CustomerRepository,
	products ports.ProductRepository,
	orders ports.OrderRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		tenants:   tenants,
		customers: customers,
		products:  products,
		orders:    orders,
		metrics:   m,
		logger:    logger,
	}
}

// Ingest resolves the tenant from the delivery's shop domain and applies the
// topic's upsert. It returns ErrTenantNotFound for unknown shops (the caller
// answers 404, stopping redelivery) and ErrMalformedPayload for bodies that
// do not decode (the caller answers 500 so Shopify retries).
func (s *IngestService) Ingest(ctx context.Context, topic string, shopDomain string, payload []byte) error {
	tenant, err := s.tenants.GetByShopDomain(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant for %s: %w", shopDomain, err)
	}
	if tenant == nil {
		return domain.ErrTenantNotFound
	}

	resource, _, found := strings.Cut(topic, "/")
	if !found {
		return fmt.Errorf("%w: unroutable topic %q", domain.ErrMalformedPayload, topic)
	}

	switch domain.Collection(resource) {
	case domain.CollectionOrders:
		err = s.ingestOrder(ctx, tenant.ID, payload)
	case domain.CollectionCustomers:
		err = s.ingestCustomer(ctx, tenant.ID, payload)
	case domain.CollectionProducts:
		err = s.ingestProduct(ctx, tenant.ID, payload)
	default:
		return fmt.Errorf("%w: unroutable topic %q", domain.ErrMalformedPayload, topic)
	}
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("topic", topic).
		Str("shop", shopDomain).
		Str("tenantId", tenant.ID).
		Msg("Webhook delivery ingested")
	return nil
}

func (s *IngestService) ingestOrder(ctx context.Context, tenantID string, payload []byte) error {
	var order goshopify.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if order.Id == 0 {
		return fmt.Errorf("%w: order without id", domain.ErrMalformedPayload)
	}
	if err := s.orders.Upsert(ctx, orderFromShopify(tenantID, &order)); err != nil {
		return err
	}
	s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionOrders), "webhook").Inc()
	return nil
}

func (s *IngestService) ingestCustomer(ctx context.Context, tenantID string, payload []byte) error {
	var customer goshopify.Customer
	if err := json.Unmarshal(payload, &customer); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if customer.Id == 0 {
		return fmt.Errorf("%w: customer without id", domain.ErrMalformedPayload)
	}
	if err := s.customers.Upsert(ctx, customerFromShopify(tenantID, &customer)); err != nil {
		return err
	}
	s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionCustomers), "webhook").Inc()
	return nil
}

func (s *IngestService) ingestProduct(ctx context.Context, tenantID string, payload []byte) error {
	var product goshopify.Product
	if err := json.Unmarshal(payload, &product); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if product.Id == 0 {
		return fmt.Errorf("%w: product without id", domain.ErrMalformedPayload)
	}
	if err := s.products.Upsert(ctx, productFromShopify(tenantID, &product)); err != nil {
		return err
	}
	s.metrics.EntityUpserts.WithLabelValues(string(domain.CollectionProducts), "webhook").Inc()
	return nil
}
