// Package scheduler prunes old run history on a cron schedule.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lyallcooper/hashmaker/internal/logging"
)

// Cleaner removes history older than a number of days.
type Cleaner interface {
	CleanupOldData(retentionDays int) (int64, error)
}

// Scheduler runs the retention cleanup
type Scheduler struct {
	cleaner       Cleaner
	spec          string
	retentionDays int
	log           *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	runMu   sync.Mutex // serializes cleanups
}

// New creates a scheduler. spec is a standard five-field cron expression or
// a descriptor such as "@daily".
func New(cleaner Cleaner, spec string, retentionDays int, log *logging.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	if retentionDays < 1 {
		return nil, fmt.Errorf("retention must be at least one day, got %d", retentionDays)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{
		cleaner:       cleaner,
		spec:          spec,
		retentionDays: retentionDays,
		log:           log,
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	id, err := c.AddFunc(s.spec, func() {
		if _, err := s.RunNow(); err != nil {
			s.log.Error().Err(err).Msg("history cleanup failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	c.Start()

	s.cron = c
	s.entry = id
	s.running = true
	s.log.Info().Str("schedule", s.spec).Int("retention_days", s.retentionDays).Msg("history cleanup scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to complete
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
}

// RunNow runs the cleanup immediately and returns how many runs were removed.
func (s *Scheduler) RunNow() (int64, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	n, err := s.cleaner.CleanupOldData(s.retentionDays)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("removed", n).Msg("old runs removed")
	}
	return n, nil
}

// NextRun returns when the next cleanup is due. ok is false when stopped.
func (s *Scheduler) NextRun() (next time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}, false
	}
	return s.cron.Entry(s.entry).Next, true
}
