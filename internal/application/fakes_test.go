package application_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// In-memory fakes for the ports, so the services run against isolated state.

type memTenants struct {
	mu      sync.Mutex
	seq     int
	tenants map[string]*domain.Tenant
}

func newMemTenants() *memTenants {
	return &memTenants{tenants: make(map[string]*domain.Tenant)}
}

func (m *memTenants) add(t *domain.Tenant) *domain.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tenants[cp.ID] = &cp
	return &cp
}

func (m *memTenants) UpsertByShopDomain(_ context.Context, shopDomain, accessToken string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.ShopDomain == shopDomain {
			t.AccessToken = accessToken
			t.UpdatedAt = time.Now()
			cp := *t
			return &cp, nil
		}
	}
	m.seq++
	t := &domain.Tenant{
		ID:          fmt.Sprintf("tenant-%d", m.seq),
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		CreatedAt:   time.Now(),
	}
	m.tenants[t.ID] = t
	cp := *t
	return &cp, nil
}

func (m *memTenants) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memTenants) GetByShopDomain(_ context.Context, shopDomain string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.ShopDomain == shopDomain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memTenants) List(_ context.Context) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Tenant
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type memCustomers struct {
	mu   sync.Mutex
	rows map[string]*domain.Customer
}

func newMemCustomers() *memCustomers {
	return &memCustomers{rows: make(map[string]*domain.Customer)}
}

func (m *memCustomers) Upsert(_ context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.rows[c.TenantID+"/"+c.ShopifyID] = &cp
	return nil
}

func (m *memCustomers) Get(_ context.Context, tenantID, shopifyID string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[tenantID+"/"+shopifyID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) Count(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.rows {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type memProducts struct {
	mu   sync.Mutex
	rows map[string]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{rows: make(map[string]*domain.Product)}
}

func (m *memProducts) Upsert(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.TenantID+"/"+p.ShopifyID] = &cp
	return nil
}

func (m *memProducts) Get(_ context.Context, tenantID, shopifyID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[tenantID+"/"+shopifyID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) Count(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.rows {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type memOrders struct {
	mu   sync.Mutex
	rows map[string]*domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{rows: make(map[string]*domain.Order)}
}

func (m *memOrders) Upsert(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.rows[o.TenantID+"/"+o.ShopifyID] = &cp
	return nil
}

func (m *memOrders) Get(_ context.Context, tenantID, shopifyID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[tenantID+"/"+shopifyID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Count(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.rows {
		if o.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *memOrders) List(_ context.Context, tenantID string, from, to *time.Time) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.rows {
		if o.TenantID != tenantID {
			continue
		}
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

// fakeShopify scripts the platform side. Page cursors are simulated by
// stashing the next page index in ListOptions.PageInfo, the same field the
// real client round-trips.
type fakeShopify struct {
	mu sync.Mutex

	token       string
	exchangeErr error

	customerPages [][]goshopify.Customer
	productPages  [][]goshopify.Product
	orderPages    [][]goshopify.Order
	customersErr  error
	productsErr   error
	ordersErr     error

	// failShops maps a shop domain to an error returned for its listings.
	failShops map[string]error

	// rejectOrderFields makes the projected order listing fail, forcing the
	// full-object fallback.
	rejectOrderFields bool

	customerCount    int
	orderCount       int
	customerCountErr error
	orderCountErr    error

	existingWebhooks []goshopify.Webhook
	listWebhooksErr  error
	createdTopics    []string
	createdAddrs     []string
	updatedIDs       []uint64
	updatedAddrs     []string

	orderListCalls int
}

func (f *fakeShopify) ExchangeToken(_ context.Context, shop, code string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	if f.token != "" {
		return f.token, nil
	}
	return "token-for-" + code, nil
}

func pageIndex(options interface{}) int {
	if o, ok := options.(*goshopify.ListOptions); ok && o != nil {
		i, _ := strconv.Atoi(o.PageInfo)
		return i
	}
	return 0
}

func nextPage(next, total int) *goshopify.Pagination {
	if next >= total {
		return &goshopify.Pagination{}
	}
	return &goshopify.Pagination{
		NextPageOptions: &goshopify.ListOptions{PageInfo: strconv.Itoa(next)},
	}
}

func (f *fakeShopify) ListCustomers(_ context.Context, _, _ string, options interface{}) ([]goshopify.Customer, *goshopify.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customersErr != nil {
		return nil, nil, f.customersErr
	}
	i := pageIndex(options)
	if i >= len(f.customerPages) {
		return nil, &goshopify.Pagination{}, nil
	}
	return f.customerPages[i], nextPage(i+1, len(f.customerPages)), nil
}

func (f *fakeShopify) ListProducts(_ context.Context, _, _ string, options interface{}) ([]goshopify.Product, *goshopify.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, nil, f.productsErr
	}
	i := pageIndex(options)
	if i >= len(f.productPages) {
		return nil, &goshopify.Pagination{}, nil
	}
	return f.productPages[i], nextPage(i+1, len(f.productPages)), nil
}

func (f *fakeShopify) ListOrders(_ context.Context, shop, _ string, options interface{}) ([]goshopify.Order, *goshopify.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderListCalls++
	if err := f.failShops[shop]; err != nil {
		return nil, nil, err
	}
	if o, ok := options.(ports.OrderPageOptions); ok && o.Fields != "" && f.rejectOrderFields {
		return nil, nil, fmt.Errorf("fields selection not allowed")
	}
	if f.ordersErr != nil {
		return nil, nil, f.ordersErr
	}
	i := pageIndex(options)
	if i >= len(f.orderPages) {
		return nil, &goshopify.Pagination{}, nil
	}
	return f.orderPages[i], nextPage(i+1, len(f.orderPages)), nil
}

func (f *fakeShopify) CountCustomers(_ context.Context, _, _ string) (int, error) {
	if f.customerCountErr != nil {
		return 0, f.customerCountErr
	}
	return f.customerCount, nil
}

func (f *fakeShopify) CountOrders(_ context.Context, _, _ string) (int, error) {
	if f.orderCountErr != nil {
		return 0, f.orderCountErr
	}
	return f.orderCount, nil
}

func (f *fakeShopify) ListWebhooks(_ context.Context, _, _ string) ([]goshopify.Webhook, error) {
	if f.listWebhooksErr != nil {
		return nil, f.listWebhooksErr
	}
	return f.existingWebhooks, nil
}

func (f *fakeShopify) CreateWebhook(_ context.Context, _, _ string, topic, address string) (*goshopify.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdTopics = append(f.createdTopics, topic)
	f.createdAddrs = append(f.createdAddrs, address)
	return &goshopify.Webhook{Topic: topic, Address: address}, nil
}

func (f *fakeShopify) UpdateWebhook(_ context.Context, _, _ string, webhookID uint64, address string) (*goshopify.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedIDs = append(f.updatedIDs, webhookID)
	f.updatedAddrs = append(f.updatedAddrs, address)
	return &goshopify.Webhook{Address: address}, nil
}

var _ ports.ShopifyClient = (*fakeShopify)(nil)
var _ ports.TenantRepository = (*memTenants)(nil)
var _ ports.CustomerRepository = (*memCustomers)(nil)
var _ ports.ProductRepository = (*memProducts)(nil)
var _ ports.OrderRepository = (*memOrders)(nil)
