package application

import (
	"context"
	"fmt"
	"net/url"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"github.com/rs/zerolog"
)

// AuthService handles app installation: building the consent URL, exchanging
// the authorization code for an access token, and persisting the tenant.
type AuthService struct {
	tenants ports.TenantRepository
	client  ports.ShopifyClient
	apiKey  string
	scopes  string
	appURL  string
	logger  zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	tenants ports.TenantRepository,
	client ports.ShopifyClient,
	apiKey string,
	scopes string,
	appURL string,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		tenants: tenants,
		client:  client,
		apiKey:  apiKey,
		scopes:  scopes,
		appURL:  appURL,
		logger:  logger,
	}
}

// InstallURL builds the Shopify consent URL for the shop.
func (s *AuthService) InstallURL(shop string, state string) (string, error) {
	if !domain.ValidShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain %q: must end with %s", shop, domain.ShopDomainSuffix)
	}
	redirectURI := s.appURL + "/auth/callback"
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		url.QueryEscape(s.apiKey),
		url.QueryEscape(s.scopes),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	), nil
}

// HandleCallback exchanges the authorization code and upserts the tenant by
// shop domain, so repeated callbacks never create duplicates. Token exchange
// failures surface as AuthError and are never retried automatically.
func (s *AuthService) HandleCallback(ctx context.Context, shop string, code string) (*domain.Tenant, error) {
	if !domain.ValidShopDomain(shop) {
		return nil, &domain.AuthError{Shop: shop, Err: fmt.Errorf("invalid shop domain")}
	}

	accessToken, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		return nil, &domain.AuthError{Shop: shop, Err: err}
	}

	tenant, err := s.tenants.UpsertByShopDomain(ctx, shop, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to persist tenant after token exchange: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("tenantId", tenant.ID).
		Msg("App installed")
	return tenant, nil
}

// RegisterTenant creates or updates a tenant directly from a pre-provisioned
// custom app token, bypassing OAuth.
func (s *AuthService) RegisterTenant(ctx context.Context, shopDomain string, accessToken string) (*domain.Tenant, error) {
	if !domain.ValidShopDomain(shopDomain) {
		return nil, fmt.Errorf("invalid shop domain %q: must end with %s", shopDomain, domain.ShopDomainSuffix)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	return s.tenants.UpsertByShopDomain(ctx, shopDomain, accessToken)
}
