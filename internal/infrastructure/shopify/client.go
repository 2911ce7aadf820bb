package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-insights-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// defaultPageLimit is the maximum page size the Shopify REST API allows.
const defaultPageLimit = 250

// requestTimeout bounds every outbound Shopify call.
const requestTimeout = 30 * time.Second

type client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		app:        app,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client for one shop.
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

// ExchangeToken exchanges an authorization code for an access token.
// The call goes straight to Shopify's token endpoint so it can carry the
// request context and a bounded timeout.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	return tokenResponse.AccessToken, nil
}

// Resource listing

func (c *client) ListCustomers(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Customer, *goshopify.Pagination, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	customers, pagination, err := cl.Customer.ListWithPagination(ctx, options)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, pagination, nil
}

func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Product, *goshopify.Pagination, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	products, pagination, err := cl.Product.ListWithPagination(ctx, options)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, pagination, nil
}

func (c *client) ListOrders(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Order, *goshopify.Pagination, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	orders, pagination, err := cl.Order.ListWithPagination(ctx, options)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, pagination, nil
}

// Resource counts

func (c *client) CountCustomers(ctx context.Context, shopDomain string, accessToken string) (int, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	count, err := cl.Customer.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

func (c *client) CountOrders(ctx context.Context, shopDomain string, accessToken string) (int, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	count, err := cl.Order.Count(ctx, ports.OrderPageOptions{Status: "any"})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// Webhook subscription API

func (c *client) ListWebhooks(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	webhooks, err := cl.Webhook.List(ctx, ports.PageOptions{Limit: defaultPageLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	created, err := cl.Webhook.Create(ctx, webhook)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return created, nil
}

func (c *client) UpdateWebhook(ctx context.Context, shopDomain string, accessToken string, webhookID uint64, address string) (*goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	existing, err := cl.Webhook.Get(ctx, webhookID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	existing.Address = address
	updated, err := cl.Webhook.Update(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	return updated, nil
}
