package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
)

// HousekeepingService periodically drains the cache layer's local fallback
// queue so writes buffered during a backend outage reach the remote store
// once it is reachable again.
type HousekeepingService struct {
	Cache    cache.Cache
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the drain worker. If interval is 0 or
// negative, defaults to 30 seconds.
func NewHousekeepingService(c cache.Cache, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &HousekeepingService{
		Cache:    c,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress drain finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if flushed := s.Cache.DrainFallback(context.Background()); flushed > 0 {
				s.Logger.Info("cache fallback drained", "flushed", flushed)
			}
		case <-s.stopCh:
			return
		}
	}
}
