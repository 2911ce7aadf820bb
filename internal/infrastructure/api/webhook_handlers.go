package api

import (
	"errors"
	"io"
	"net/http"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
)

// handleWebhook is the single entry point for all webhook deliveries.
// The raw body is captured once, before any parsing, and that same byte
// sequence feeds both the verifier and the ingest path.
func (h *Handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topic := chi.URLParam(r, "resource") + "/" + chi.URLParam(r, "action")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to read webhook body")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if h.skipVerify {
		h.logger.Warn().Str("topic", topic).Msg("Skipping webhook HMAC verification (development mode)")
	} else {
		signature := r.Header.Get("X-Shopify-Hmac-Sha256")
		if err := h.verifier.Verify(rawBody, signature); err != nil {
			h.metrics.WebhookDeliveries.WithLabelValues(topic, metrics.OutcomeUnverified).Inc()
			if errors.Is(err, domain.ErrMissingSignature) {
				http.Error(w, "Missing HMAC header", http.StatusUnauthorized)
			} else {
				h.logger.Warn().Str("topic", topic).Msg("Webhook signature mismatch")
				http.Error(w, "Invalid HMAC", http.StatusUnauthorized)
			}
			return
		}
	}

	shopDomain := r.Header.Get("X-Shopify-Shop-Domain")
	err = h.ingest.Ingest(ctx, topic, shopDomain, rawBody)
	switch {
	case err == nil:
		h.metrics.WebhookDeliveries.WithLabelValues(topic, metrics.OutcomeAccepted).Inc()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	case errors.Is(err, domain.ErrTenantNotFound):
		// Permanent: answering 404 stops Shopify from redelivering.
		h.metrics.WebhookDeliveries.WithLabelValues(topic, metrics.OutcomeNoTenant).Inc()
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrMalformedPayload):
		// Treated as transient so Shopify's retry policy re-attempts it.
		h.metrics.WebhookDeliveries.WithLabelValues(topic, metrics.OutcomeMalformed).Inc()
		h.logger.Error().Err(err).Str("topic", topic).Str("shop", shopDomain).Msg("Malformed webhook payload")
		http.Error(w, "Error", http.StatusInternalServerError)
	default:
		h.metrics.WebhookDeliveries.WithLabelValues(topic, metrics.OutcomeRejected).Inc()
		h.logger.Error().Err(err).Str("topic", topic).Str("shop", shopDomain).Msg("Webhook ingestion failed")
		http.Error(w, "Error", http.StatusInternalServerError)
	}
}
