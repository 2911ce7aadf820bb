package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopify-insights-core/internal/application"
	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/infrastructure/locker"
	"shopify-insights-core/internal/infrastructure/metrics"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SweepsAllTenantsDespiteFailures(t *testing.T) {
	tenants := newMemTenants()
	tenants.add(&domain.Tenant{ID: "t1", ShopDomain: "failing.myshopify.com"})
	tenants.add(&domain.Tenant{ID: "t2", ShopDomain: "healthy.myshopify.com"})

	orders := newMemOrders()
	client := &fakeShopify{
		orderPages: [][]goshopify.Order{{{Id: 100, TotalPrice: money("9.99")}}},
		failShops:  map[string]error{"failing.myshopify.com": errors.New("503 Service Unavailable")},
	}
	sync := application.NewSyncService(client, newMemCustomers(), newMemProducts(), orders, locker.NewMemoryLocker(), metrics.NewNop(), zerolog.Nop())
	scheduler := application.NewScheduler(tenants, sync, 5*time.Millisecond, zerolog.Nop())

	// the first sweep runs immediately; the healthy tenant must sync even
	// though the other one keeps failing
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		n, _ := orders.Count(context.Background(), "t2")
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)

	n, err := orders.Count(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, n)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestScheduler_SkipsTenantWithRunInFlight(t *testing.T) {
	tenants := newMemTenants()
	tenants.add(&domain.Tenant{ID: "t1", ShopDomain: "busy.myshopify.com"})
	tenants.add(&domain.Tenant{ID: "t2", ShopDomain: "idle.myshopify.com"})

	lk := locker.NewMemoryLocker()
	release, ok, err := lk.TryLock(context.Background(), "t1:orders")
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	orders := newMemOrders()
	client := &fakeShopify{
		orderPages: [][]goshopify.Order{{{Id: 100, TotalPrice: money("9.99")}}},
	}
	sync := application.NewSyncService(client, newMemCustomers(), newMemProducts(), orders, lk, metrics.NewNop(), zerolog.Nop())
	scheduler := application.NewScheduler(tenants, sync, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		n, _ := orders.Count(context.Background(), "t2")
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)

	n, err := orders.Count(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, n, "locked tenant must be skipped, not block the sweep")

	cancel()
	<-done
}

func TestScheduler_ListFailureDoesNotPanic(t *testing.T) {
	failing := &failingTenants{err: errors.New("connection reset")}
	sync := application.NewSyncService(&fakeShopify{}, newMemCustomers(), newMemProducts(), newMemOrders(), locker.NewMemoryLocker(), metrics.NewNop(), zerolog.Nop())
	scheduler := application.NewScheduler(failing, sync, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

type failingTenants struct {
	memTenants
	err error
}

func (f *failingTenants) List(context.Context) ([]*domain.Tenant, error) {
	return nil, f.err
}
