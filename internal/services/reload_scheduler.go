package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reloadTimeout = 2 * time.Minute

// ReloadScheduler periodically rereads the player pool, e.g. after the
// nightly stats export lands.
type ReloadScheduler struct {
	service *RosterService
	cron    *cron.Cron
	logger  *logrus.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

func NewReloadScheduler(service *RosterService, logger *logrus.Logger) *ReloadScheduler {
	return &ReloadScheduler{
		service: service,
		cron:    cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		logger:  logger,
	}
}

// Start schedules reloads on a standard five-field cron expression or a
// descriptor such as "@every 6h".
func (s *ReloadScheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("reload scheduler is already running")
	}

	if _, err := s.cron.AddFunc(schedule, s.runReload); err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.WithFields(logrus.Fields{
		"component": "reload_scheduler",
		"schedule":  schedule,
		"next_run":  s.cron.Entries()[0].Next,
	}).Info("Player pool reload scheduled")

	return nil
}

// Stop waits for a running reload to finish.
func (s *ReloadScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.WithField("component", "reload_scheduler").Info("Reload scheduler stopped")
	case <-time.After(5 * time.Second):
		s.logger.WithField("component", "reload_scheduler").Warn("Reload scheduler stop timed out")
	}
}

// LastRun reports when the last scheduled reload finished and its error.
func (s *ReloadScheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *ReloadScheduler) runReload() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	start := time.Now()
	count, err := s.service.Reload(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	entry := s.logger.WithFields(logrus.Fields{
		"component": "reload_scheduler",
		"duration":  time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Error("Scheduled player pool reload failed")
		return
	}
	entry.WithField("players", count).Info("Scheduled player pool reload completed")
}
