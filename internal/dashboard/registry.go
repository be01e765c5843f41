package dashboard

import (
	"context"
	"sync"
	"time"

	"zarab-collections/internal/telemetry"

	"go.uber.org/zap"
)

type entry struct {
	shell    *Shell
	lastSeen time.Time
}

// Registry keeps one shell per authenticated session
type Registry struct {
	mu      sync.Mutex
	shells  map[string]*entry
	repo    Repository
	logger  *zap.Logger
	idleTTL time.Duration
	now     func() time.Time
}

// NewRegistry creates an empty registry. Shells unused for idleTTL are evicted
// by Sweep.
func NewRegistry(repo Repository, logger *zap.Logger, idleTTL time.Duration) *Registry {
	return &Registry{
		shells:  make(map[string]*entry),
		repo:    repo,
		logger:  logger,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Shell returns the session's shell, opening it on first use. Opening runs the
// initial list fetch; a failed fetch still yields a usable shell.
func (r *Registry) Shell(ctx context.Context, session Session) *Shell {
	r.mu.Lock()
	if e, ok := r.shells[session.ID()]; ok && !e.shell.Closed() {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.shell
	}

	shell := NewShell(session, r.repo, r.logger)
	r.shells[session.ID()] = &entry{shell: shell, lastSeen: r.now()}
	telemetry.DashboardSessions.Set(float64(len(r.shells)))
	r.mu.Unlock()

	r.logger.Info("Dashboard opened", zap.String("session_id", session.ID()))
	_ = shell.Open(ctx)
	return shell
}

// Logout signs the session out through its shell and forgets the shell.
// A session without a shell is signed out directly.
func (r *Registry) Logout(ctx context.Context, session Session) error {
	r.mu.Lock()
	e, ok := r.shells[session.ID()]
	r.mu.Unlock()

	var err error
	if ok {
		err = e.shell.Logout(ctx)
	} else {
		err = session.SignOut(ctx)
	}
	if err != nil {
		return err
	}

	r.Close(session.ID())
	return nil
}

// Close drops a shell without signing out
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.shells, sessionID)
	telemetry.DashboardSessions.Set(float64(len(r.shells)))
}

// Sweep evicts shells idle longer than the TTL and returns how many went
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, e := range r.shells {
		if e.lastSeen.Before(cutoff) {
			delete(r.shells, id)
			evicted++
		}
	}

	if evicted > 0 {
		telemetry.DashboardSessions.Set(float64(len(r.shells)))
		r.logger.Info("Evicted idle dashboards", zap.Int("count", evicted))
	}
	return evicted
}

// Run sweeps every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of open shells
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shells)
}
