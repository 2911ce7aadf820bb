package application_test

import (
	"context"
	"errors"
	"testing"

	"shopify-insights-core/internal/application"
	"shopify-insights-core/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registrarAppURL = "https://insights.example.com"

func registrarTenant() *domain.Tenant {
	return &domain.Tenant{ID: "t1", ShopDomain: "acme.myshopify.com", AccessToken: "shpat_x"}
}

func TestRegister_CreatesAllMissingTopics(t *testing.T) {
	client := &fakeShopify{}
	registrar := application.NewWebhookRegistrar(client, registrarAppURL, zerolog.Nop())

	require.NoError(t, registrar.Register(context.Background(), registrarTenant()))

	desired := registrar.Desired()
	require.Len(t, client.createdTopics, len(desired))
	for i, sub := range desired {
		assert.Equal(t, sub.Topic, client.createdTopics[i])
		assert.Equal(t, sub.Address, client.createdAddrs[i])
	}
	assert.Empty(t, client.updatedIDs)
}

func TestRegister_RepairsOnlyTheStaleAddress(t *testing.T) {
	client := &fakeShopify{}
	registrar := application.NewWebhookRegistrar(client, registrarAppURL, zerolog.Nop())
	for i, sub := range registrar.Desired() {
		addr := sub.Address
		if sub.Topic == "orders/updated" {
			addr = "https://old-host.example.com/webhooks/orders/updated"
		}
		client.existingWebhooks = append(client.existingWebhooks, goshopify.Webhook{
			Id:      uint64(i + 1),
			Topic:   sub.Topic,
			Address: addr,
		})
	}

	require.NoError(t, registrar.Register(context.Background(), registrarTenant()))

	assert.Empty(t, client.createdTopics)
	require.Len(t, client.updatedIDs, 1)
	assert.Equal(t, []string{registrarAppURL + "/webhooks/orders/updated"}, client.updatedAddrs)
}

func TestRegister_ConvergedStateIsANoOp(t *testing.T) {
	client := &fakeShopify{}
	registrar := application.NewWebhookRegistrar(client, registrarAppURL, zerolog.Nop())
	for i, sub := range registrar.Desired() {
		client.existingWebhooks = append(client.existingWebhooks, goshopify.Webhook{
			Id:      uint64(i + 1),
			Topic:   sub.Topic,
			Address: sub.Address,
		})
	}

	require.NoError(t, registrar.Register(context.Background(), registrarTenant()))

	assert.Empty(t, client.createdTopics)
	assert.Empty(t, client.updatedIDs)
}

func TestRegister_ListFailureStillAttemptsCreates(t *testing.T) {
	client := &fakeShopify{listWebhooksErr: errors.New("502 Bad Gateway")}
	registrar := application.NewWebhookRegistrar(client, registrarAppURL, zerolog.Nop())

	require.NoError(t, registrar.Register(context.Background(), registrarTenant()))

	assert.Len(t, client.createdTopics, len(registrar.Desired()))
}

func TestDesired_AddressesDeriveFromAppURL(t *testing.T) {
	registrar := application.NewWebhookRegistrar(&fakeShopify{}, registrarAppURL, zerolog.Nop())
	for _, sub := range registrar.Desired() {
		assert.Equal(t, registrarAppURL+"/webhooks/"+sub.Topic, sub.Address)
	}
}
