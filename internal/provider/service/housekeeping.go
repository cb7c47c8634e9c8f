package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically purges expired database records so
// storage stays bounded even when no failed lookup triggers the
// opportunistic deletes.
type HousekeepingService struct {
	Provider *Provider
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(provider *Provider, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Provider: provider,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs one sweep. Sweep failures are logged inside Cleanup and never
// stop the ticker.
func (s *HousekeepingService) cleanup() {
	stats := s.Provider.Cleanup(context.Background())
	s.Logger.Info("housekeeping cleanup completed",
		"sessions", stats.Sessions,
		"pending_authorizations", stats.PendingAuthorizations,
		"authorization_codes", stats.AuthorizationCodes,
		"tokens", stats.Tokens,
	)
}
