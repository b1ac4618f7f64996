package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgekit/authcore/internal/authcore/store"
)

// MaintenanceService periodically purges session rows whose expiry is older
// than the retention window. Expired rows are kept briefly past expiry so
// security events can still be correlated to them.
type MaintenanceService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration // how long past expiry a session row is kept

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMaintenanceService creates the background sweeper. A non-positive
// interval defaults to 1 hour, a non-positive retention to 7 days.
func NewMaintenanceService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *MaintenanceService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &MaintenanceService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *MaintenanceService) Start() {
	go s.run()
	s.Logger.Info("maintenance service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down and blocks until any in-progress sweep finishes.
func (s *MaintenanceService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("maintenance service stopped")
}

func (s *MaintenanceService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup.
	if _, err := s.Sweep(context.Background()); err != nil {
		s.Logger.Error("maintenance sweep failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(context.Background()); err != nil {
				s.Logger.Error("maintenance sweep failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes sessions whose expiry precedes now minus the retention
// window. The delete is by predicate and idempotent, so concurrent sweeps
// and normal traffic are safe.
func (s *MaintenanceService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.Retention)

	deleted, err := s.Store.Sessions().DeleteSessionsExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.Logger.Info("maintenance sweep completed", "purged_sessions", deleted)
	}
	return deleted, nil
}
