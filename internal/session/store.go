// Package session keeps one dashboard controller per browser session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/userdash/userdash/internal/dashboard"
	"github.com/userdash/userdash/internal/metrics"
)

const (
	// CookieName carries the session id.
	CookieName = "userdash_session"
	// DefaultIdleTimeout is how long an untouched session survives.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultSweepInterval is the time between idle sweeps.
	DefaultSweepInterval = time.Minute
)

// Factory builds the controller for a new session.
type Factory func() *dashboard.Controller

type entry struct {
	ctrl     *dashboard.Controller
	lastSeen time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIdleTimeout sets how long a session may go untouched.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithSweepInterval sets the time between idle sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithClock replaces the store clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is an in-memory session registry.
type Store struct {
	factory       Factory
	logger        *slog.Logger
	metrics       metrics.Recorder
	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	started  bool
}

// NewStore creates an empty store.
func NewStore(factory Factory, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Store {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		factory:       factory,
		logger:        logger.With("component", "session.store"),
		metrics:       recorder,
		idleTimeout:   DefaultIdleTimeout,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		sessions:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the controller for id and marks the session as active.
func (s *Store) Get(id string) (*dashboard.Controller, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.ctrl, true
}

// Create starts a new session and mounts its controller.
func (s *Store) Create(ctx context.Context) (string, *dashboard.Controller) {
	id := uuid.NewString()
	ctrl := s.factory()

	s.mu.Lock()
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	s.logger.Debug("session created", "session_id", id)

	ctrl.Mount(ctx)
	return id, ctrl
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep unmounts and removes sessions idle for longer than the timeout.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var expired []*dashboard.Controller
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.ctrl)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Unmount()
	}
	if len(expired) > 0 {
		s.metrics.SetActiveSessions(n)
		s.logger.Info("expired idle sessions", "count", len(expired), "active", n)
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session sweeper already started")
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("session sweeper started", "interval", s.sweepInterval, "idle_timeout", s.idleTimeout)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// CloseAll unmounts every session. Used on shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.ctrl.Unmount()
	}
	s.metrics.SetActiveSessions(0)
}

type ctxKey struct{}

// NewContext returns ctx carrying the session id and controller.
func NewContext(ctx context.Context, id string, ctrl *dashboard.Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, &current{id: id, ctrl: ctrl})
}

type current struct {
	id   string
	ctrl *dashboard.Controller
}

// FromContext returns the session controller stored in ctx.
func FromContext(ctx context.Context) (*dashboard.Controller, bool) {
	c, ok := ctx.Value(ctxKey{}).(*current)
	if !ok {
		return nil, false
	}
	return c.ctrl, true
}

// IDFromContext returns the session id stored in ctx, or "".
func IDFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(ctxKey{}).(*current); ok {
		return c.id
	}
	return ""
}
