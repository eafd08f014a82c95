// Package scheduler runs the background TTL sweep that deletes sessions
// older than their configured lifetime.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/secstrace/tracecore/internal/metrics"
	"github.com/secstrace/tracecore/internal/storage"
	"github.com/secstrace/tracecore/internal/store"
)

// TTLSweeper periodically lists session directories, reads meta.json's
// modification time, and deletes sessions older than ttl. A session whose
// meta.json has not yet been published is never touched, since its age
// cannot be determined and ingest may still be in-flight.
type TTLSweeper struct {
	store   *store.Store
	lister  storage.ObjectLister
	ttl     time.Duration
	period  time.Duration
	cron    *cron.Cron
	running bool
	mu      sync.Mutex
	logger  zerolog.Logger
}

// Config holds the TTL sweeper's settings.
type Config struct {
	TTL      time.Duration
	Period   time.Duration
	Store    *store.Store
	Backend  storage.Backend
	Logger   zerolog.Logger
}

// New creates a TTL sweeper. backend must implement storage.ObjectLister;
// the local backend does.
func New(cfg Config) (*TTLSweeper, error) {
	lister, ok := cfg.Backend.(storage.ObjectLister)
	if !ok {
		return nil, fmt.Errorf("storage backend does not support object listing, required for TTL sweep")
	}
	return &TTLSweeper{
		store:  cfg.Store,
		lister: lister,
		ttl:    cfg.TTL,
		period: cfg.Period,
		logger: cfg.Logger.With().Str("component", "ttl-sweeper").Logger(),
	}, nil
}

// Start begins the sweep on cfg.Period using a "@every" cron schedule.
func (s *TTLSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.cron = cron.New()
	schedule := fmt.Sprintf("@every %s", s.period)
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return fmt.Errorf("invalid sweep interval: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().Dur("ttl", s.ttl).Dur("period", s.period).Msg("TTL sweeper started")
	return nil
}

// Close halts the cron scheduler, waiting for any in-flight sweep to finish,
// and satisfies shutdown.Shutdownable.
func (s *TTLSweeper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("TTL sweeper stopped")
	return nil
}

// runSweep lists every session's meta.json, deleting any older than ttl.
func (s *TTLSweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	objects, err := s.lister.ListObjects(ctx, "")
	if err != nil {
		s.logger.Error().Err(err).Msg("TTL sweep failed to list sessions")
		return
	}

	cutoff := time.Now().Add(-s.ttl)
	var expired, active int

	for _, obj := range objects {
		sessionID, ok := sessionIDFromMetaPath(obj.Path)
		if !ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			active++
			continue
		}

		if err := s.store.Delete(ctx, sessionID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("TTL sweep failed to delete session")
			continue
		}
		expired++
		metrics.Get().IncSessionsExpired()
		s.logger.Info().Str("session_id", sessionID).Time("last_modified", obj.LastModified).Msg("session expired by TTL")
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Int("active", active).Msg("TTL sweep complete")
	}
}

// sessionIDFromMetaPath extracts a session id from a relative path of the
// form "<session-id>/meta.json". Any other path is ignored: it isn't a
// published session.
func sessionIDFromMetaPath(p string) (string, bool) {
	const suffix = "/meta.json"
	if len(p) <= len(suffix) {
		return "", false
	}
	if p[len(p)-len(suffix):] != suffix {
		return "", false
	}
	return p[:len(p)-len(suffix)], true
}
