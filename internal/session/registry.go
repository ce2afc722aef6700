package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/frenchbreeze/breeze/internal/identity"
)

// Registry keeps one attached Manager per identity for multi-user servers.
// Managers nobody holds are detached once idle for longer than the eviction
// window.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*entry
	factory  func() *Manager
	now      func() time.Time
	logger   *slog.Logger
}

type entry struct {
	m        *Manager
	holds    int
	lastUsed time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock sets the time source used for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns a Registry that builds managers with factory.
func NewRegistry(factory func() *Manager, opts ...RegistryOption) *Registry {
	r := &Registry{
		managers: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the manager attached to id and holds it against eviction
// until release is called. release is safe to call more than once.
func (r *Registry) Acquire(ctx context.Context, id identity.Identity) (*Manager, func(), error) {
	r.mu.Lock()
	e, ok := r.managers[id.ID]
	if !ok {
		e = &entry{m: r.factory()}
		r.managers[id.ID] = e
	}
	e.holds++
	e.lastUsed = r.now()
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			e.holds--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}

	if err := e.m.Attach(ctx, id); err != nil {
		return e.m, release, err
	}
	return e.m, release, nil
}

// Get returns the manager attached to id, creating and attaching it on first use.
func (r *Registry) Get(ctx context.Context, id identity.Identity) (*Manager, error) {
	m, release, err := r.Acquire(ctx, id)
	release()
	return m, err
}

// Lookup returns the manager for uid without attaching.
func (r *Registry) Lookup(uid string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.managers[uid]
	if !ok {
		return nil, false
	}
	return e.m, true
}

// Drop detaches and forgets the manager for uid.
func (r *Registry) Drop(uid string) {
	r.mu.Lock()
	e, ok := r.managers[uid]
	delete(r.managers, uid)
	r.mu.Unlock()
	if ok {
		e.m.Detach()
	}
}

// EvictIdle detaches the managers nobody holds that were last used more than
// maxIdle ago. It returns how many were evicted.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var idle []*Manager

	r.mu.Lock()
	for uid, e := range r.managers {
		if e.holds > 0 || e.lastUsed.After(cutoff) {
			continue
		}
		delete(r.managers, uid)
		idle = append(idle, e.m)
	}
	r.mu.Unlock()

	for _, m := range idle {
		m.Detach()
	}
	return len(idle)
}

// RunJanitor evicts idle managers every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) error {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	if _, err := cron.Every(interval).Do(func() {
		if n := r.EvictIdle(maxIdle); n > 0 {
			r.logger.Info("idle sessions evicted", "count", n, "remaining", r.Len())
		}
	}); err != nil {
		return fmt.Errorf("schedule session eviction every %s: %w", interval, err)
	}

	cron.StartAsync()
	<-ctx.Done()
	cron.Stop()
	return nil
}

// Len returns the number of managed identities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Close detaches every manager.
func (r *Registry) Close() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range managers {
		e.m.Detach()
	}
}
