package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionSweeper periodically drops sessions idle for longer than ttl
type SessionSweeper struct {
	store    SessionStore
	ttl      time.Duration
	schedule string
	observer Observer
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSessionSweeper creates a sweeper running on a cron schedule such as "@every 1m"
func NewSessionSweeper(store SessionStore, ttl time.Duration, schedule string, observer Observer, logger zerolog.Logger) *SessionSweeper {
	if observer == nil {
		observer = nopObserver{}
	}
	return &SessionSweeper{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		observer: observer,
		logger:   logger.With().Str("component", "session_sweeper").Logger(),
	}
}

// Start schedules the sweep. A non-positive ttl leaves sessions alive until
// they are deleted explicitly, and Start does nothing.
func (s *SessionSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl <= 0 {
		s.logger.Info().Msg("Session expiry disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("session sweeper is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.running = true

	s.logger.Info().
		Dur("ttl", s.ttl).
		Str("schedule", s.schedule).
		Msg("Session sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Session sweeper stopped")
}

// Sweep removes expired sessions once and returns how many were removed
func (s *SessionSweeper) Sweep() int {
	removed := s.store.Expire(s.ttl)
	if removed > 0 {
		s.observer.ObserveExpired(removed)
		s.logger.Info().
			Int("removed", removed).
			Int("remaining", s.store.Len()).
			Msg("Expired idle sessions")
	}
	return removed
}
