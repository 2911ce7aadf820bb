package application

import (
	"context"
	"errors"
	"time"

	"shopify-insights-core/internal/domain"
	"shopify-insights-core/internal/ports"

	"github.com/rs/zerolog"
)

// Scheduler periodically backfills orders for every tenant. One tenant's
// failure never aborts the sweep; it is logged and the remaining tenants
// still run.
type Scheduler struct {
	tenants  ports.TenantRepository
	sync     *SyncService
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a new background sync scheduler.
func NewScheduler(tenants ports.TenantRepository, sync *SyncService, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		tenants:  tenants,
		sync:     sync,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Auto-sync enabled")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Auto-sync stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Auto-sync sweep failed to list tenants")
		return
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return
		}
		err := s.sync.SyncOrders(ctx, tenant)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSyncInProgress):
			s.logger.Debug().
				Str("shop", tenant.ShopDomain).
				Msg("Auto-sync skipped: a run is already in flight")
		default:
			s.logger.Warn().
				Err(err).
				Str("shop", tenant.ShopDomain).
				Msg("Auto-sync failed for tenant")
		}
	}
}
