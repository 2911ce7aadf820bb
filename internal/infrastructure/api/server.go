package api

import (
	"encoding/json"
	"net/http"

	"shopify-insights-core/internal/application"
	"shopify-insights-core/internal/infrastructure/metrics"
	"shopify-insights-core/internal/infrastructure/shopify"
	"shopify-insights-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers wires the application services to the HTTP surface.
type Handlers struct {
	auth      *application.AuthService
	ingest    *application.IngestService
	sync      *application.SyncService
	registrar *application.WebhookRegistrar
	insights  *application.InsightsService
	tenants   ports.TenantRepository
	client    ports.ShopifyClient
	verifier  *shopify.WebhookVerifier
	metrics   *metrics.Metrics
	registry  *prometheus.Registry

	// skipVerify disables webhook HMAC checks. Development only.
	skipVerify bool
	corsOrigin string
	logger     zerolog.Logger
}

// Config collects the dependencies for the HTTP layer.
type Config struct {
	Auth       *application.AuthService
	Ingest     *application.IngestService
	Sync       *application.SyncService
	Registrar  *application.WebhookRegistrar
	Insights   *application.InsightsService
	Tenants    ports.TenantRepository
	Client     ports.ShopifyClient
	Verifier   *shopify.WebhookVerifier
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	SkipVerify bool
	CORSOrigin string
	Logger     zerolog.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(cfg Config) *Handlers {
	return &Handlers{
		auth:       cfg.Auth,
		ingest:     cfg.Ingest,
		sync:       cfg.Sync,
		registrar:  cfg.Registrar,
		insights:   cfg.Insights,
		tenants:    cfg.Tenants,
		client:     cfg.Client,
		verifier:   cfg.Verifier,
		metrics:    cfg.Metrics,
		registry:   cfg.Registry,
		skipVerify: cfg.SkipVerify,
		corsOrigin: cfg.CORSOrigin,
		logger:     cfg.Logger,
	}
}

// Router builds the chi router with the full inbound surface.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(noStore)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if h.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	r.Get("/auth/install", h.handleInstall)
	r.Get("/auth/callback", h.handleCallback)

	r.Post("/webhooks/{resource}/{action}", h.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync/{tenantID}", h.handleSync)
		r.Get("/sync/diagnose/{tenantID}", h.handleDiagnose)
		r.Get("/metrics/summary", h.handleSummary)
		r.Get("/metrics/orders-by-date", h.handleOrdersByDate)
		r.Get("/metrics/top-customers", h.handleTopCustomers)
		r.Post("/webhooks/register/{tenantID}", h.handleRegisterWebhooks)
		r.Get("/debug/recent-orders", h.handleRecentOrders)
		r.Get("/tenants", h.handleListTenants)
		r.Post("/tenants", h.handleCreateTenant)
	})

	return r
}

// noStore disables caching so the dashboard always sees fresh values.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the user-visible error shape. The access token never
// appears in it.
type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, errorEnvelope{Error: message, Details: details})
}
