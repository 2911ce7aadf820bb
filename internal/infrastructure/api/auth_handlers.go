package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
)

// handleInstall redirects the shop to Shopify's consent screen.
func (h *Handlers) handleInstall(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
		return
	}

	// Anti-CSRF state; Shopify echoes it back on the callback.
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate state")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(stateBytes)

	installURL, err := h.auth.InstallURL(shop, state)
	if err != nil {
		http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, installURL, http.StatusFound)
}

// handleCallback completes the OAuth flow: exchanges the code, upserts the
// tenant, and best-effort registers webhook subscriptions.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shop := r.URL.Query().Get("shop")
	code := r.URL.Query().Get("code")
	if shop == "" || code == "" {
		http.Error(w, "Missing shop or code", http.StatusBadRequest)
		return
	}

	tenant, err := h.auth.HandleCallback(ctx, shop, code)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("OAuth callback failed")
		http.Error(w, "OAuth callback error", http.StatusInternalServerError)
		return
	}

	// Registration failure is logged but never fails the install; the
	// manual registration endpoint can repair it later.
	if err := h.registrar.Register(ctx, tenant); err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Webhook registration failed")
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "App installed for %s. You may close this window.", tenant.ShopDomain)
}
