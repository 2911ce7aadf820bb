package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shopify-insights-core/internal/domain"

	"github.com/go-chi/chi/v5"
)

// resolveTenant loads the tenant addressed by the request: the chi path
// param, then the tenantId query param, then the X-Tenant-Id header; the
// first non-empty wins. A nil return means the response has already been
// written.
func (h *Handlers) resolveTenant(w http.ResponseWriter, r *http.Request) *domain.Tenant {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		tenantID = r.URL.Query().Get("tenantId")
	}
	if tenantID == "" {
		tenantID = r.Header.Get("X-Tenant-Id")
	}
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenantId required", "")
		return nil
	}

	tenant, err := h.tenants.GetByID(r.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Tenant lookup failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return nil
	}
	if tenant == nil {
		respondError(w, http.StatusNotFound, "Tenant not found", "")
		return nil
	}
	return tenant
}

// handleSync runs a synchronous full backfill for the tenant.
func (h *Handlers) handleSync(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	skipCustomers, _ := strconv.ParseBool(r.URL.Query().Get("skipCustomers"))

	err := h.sync.SyncAll(r.Context(), tenant, skipCustomers)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, domain.ErrSyncInProgress):
		respondError(w, http.StatusConflict, "Sync already in progress", "")
	default:
		h.logger.Error().Err(err).Str("shop", tenant.ShopDomain).Msg("Sync failed")
		respondError(w, http.StatusInternalServerError, "Sync failed", err.Error())
	}
}

// handleDiagnose probes Shopify connectivity with the stored credential.
func (h *Handlers) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	ctx := r.Context()

	probe := func(count int, err error) map[string]interface{} {
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		return map[string]interface{}{"count": count}
	}

	customerCount, customerErr := h.client.CountCustomers(ctx, tenant.ShopDomain, tenant.AccessToken)
	orderCount, orderErr := h.client.CountOrders(ctx, tenant.ShopDomain, tenant.AccessToken)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"shop":      tenant.ShopDomain,
		"customers": probe(customerCount, customerErr),
		"orders":    probe(orderCount, orderErr),
	})
}

// handleSummary serves the tenant's headline metrics.
func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	summary, err := h.insights.Summary(r.Context(), tenant)
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenant.ID).Msg("Summary failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleOrdersByDate serves the per-day order time series.
func (h *Handlers) handleOrdersByDate(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}

	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'from' parameter", "")
		return
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'to' parameter", "")
		return
	}

	series, err := h.insights.OrdersByDate(r.Context(), tenant.ID, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenant.ID).Msg("Orders-by-date failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// handleTopCustomers serves the top-spenders view.
func (h *Handlers) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	top, err := h.insights.TopCustomers(r.Context(), tenant.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenant.ID).Msg("Top-customers failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	respondJSON(w, http.StatusOK, top)
}

// handleRecentOrders lists the tenant's newest stored orders.
func (h *Handlers) handleRecentOrders(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recent, err := h.insights.RecentOrders(r.Context(), tenant.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("tenantId", tenant.ID).Msg("Recent-orders failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	respondJSON(w, http.StatusOK, recent)
}

// handleRegisterWebhooks manually reconciles a tenant's subscriptions.
func (h *Handlers) handleRegisterWebhooks(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolveTenant(w, r)
	if tenant == nil {
		return
	}
	if err := h.registrar.Register(r.Context(), tenant); err != nil {
		h.logger.Error().Err(err).Str("shop", tenant.ShopDomain).Msg("Manual webhook registration failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleListTenants lists registered tenants; tokens never serialize.
func (h *Handlers) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Tenant listing failed")
		respondError(w, http.StatusInternalServerError, "Failed", "")
		return
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	respondJSON(w, http.StatusOK, tenants)
}

// handleCreateTenant registers a tenant from a pre-provisioned custom app
// token, bypassing OAuth.
func (h *Handlers) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ShopDomain  string `json:"shopDomain"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	tenant, err := h.auth.RegisterTenant(r.Context(), body.ShopDomain, body.AccessToken)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":          tenant.ID,
		"shop_domain": tenant.ShopDomain,
	})
}

// parseTimeParam accepts RFC 3339 or a bare calendar date.
func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
