package application

import (
	"context"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"github.com/rs/zerolog"
)

// webhookTopics are the subscriptions every tenant should carry. They match
// the ingestable topics one to one.
var webhookTopics = []string{
	"orders/create",
	"orders/updated",
	"customers/create",
	"customers/update",
	"products/create",
	"products/update",
}

// Subscription is one desired (topic, callback address) pair.
type Subscription struct {
	Topic   string
	Address string
}

// WebhookRegistrar reconciles a tenant's registered webhook subscriptions
// against the desired table: missing topics are created, stale addresses are
// updated in place, matching entries are left alone. Re-running it after an
// app URL change repairs every stale registration.
type WebhookRegistrar struct {
	client ports.ShopifyClient
	appURL string
	logger zerolog.Logger
}

// NewWebhookRegistrar creates a new subscription reconciler.
func NewWebhookRegistrar(client ports.ShopifyClient, appURL string, logger zerolog.Logger) *WebhookRegistrar {
	return &WebhookRegistrar{
		client: client,
		appURL: appURL,
		logger: logger,
	}
}

// Desired returns the subscription table for this deployment.
func (r *WebhookRegistrar) Desired() []Subscription {
	subs := make([]Subscription, 0, len(webhookTopics))
	for _, topic := range webhookTopics {
		subs = append(subs, Subscription{
			Topic:   topic,
			Address: r.appURL + "/webhooks/" + topic,
		})
	}
	return subs
}

// Register reconciles the tenant's subscriptions. Failures are isolated per
// topic: one registration error never blocks the remaining topics.
func (r *WebhookRegistrar) Register(ctx context.Context, tenant *domain.Tenant) error {
	existing, err := r.client.ListWebhooks(ctx, tenant.ShopDomain, tenant.AccessToken)
	if err != nil {
		// Proceed with an empty view; creates of already-registered topics
		// fail individually and are logged below.
		r.logger.Error().
			Err(err).
			Str("shop", tenant.ShopDomain).
			Msg("Failed to list existing webhooks")
	}

	for _, desired := range r.Desired() {
		var matchID uint64
		matchAddress := ""
		for i := range existing {
			if existing[i].Topic == desired.Topic {
				matchID = uint64(existing[i].Id)
				matchAddress = existing[i].Address
				break
			}
		}

		switch {
		case matchID == 0:
			if _, err := r.client.CreateWebhook(ctx, tenant.ShopDomain, tenant.AccessToken, desired.Topic, desired.Address); err != nil {
				r.logger.Error().
					Err(err).
					Str("shop", tenant.ShopDomain).
					Str("topic", desired.Topic).
					Msg("Failed to create webhook subscription")
				continue
			}
			r.logger.Info().
				Str("shop", tenant.ShopDomain).
				Str("topic", desired.Topic).
				Msg("Webhook subscription created")
		case matchAddress != desired.Address:
			if _, err := r.client.UpdateWebhook(ctx, tenant.ShopDomain, tenant.AccessToken, matchID, desired.Address); err != nil {
				r.logger.Error().
					Err(err).
					Str("shop", tenant.ShopDomain).
					Str("topic", desired.Topic).
					Msg("Failed to update webhook subscription")
				continue
			}
			r.logger.Info().
				Str("shop", tenant.ShopDomain).
				Str("topic", desired.Topic).
				Msg("Webhook subscription address repaired")
		}
	}
	return nil
}
