// Package session keeps a learner's profile in sync between memory, the
// remote document store and the local cache, and owns the daily streak.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/store"
	"github.com/frenchbreeze/breeze/internal/streak"
)

// IdentityProvider updates the identity record mirrored by SetDisplayName.
type IdentityProvider interface {
	UpdateDisplayName(ctx context.Context, id identity.Identity, name string) error
}

// IdentitySource reports sign-in and sign-out events.
type IdentitySource interface {
	OnIdentityChanged(fn func(*identity.Identity)) (unsubscribe func())
}

// Manager is the session handle for one learner at a time. It is safe for
// concurrent use; store I/O never runs under its lock.
type Manager struct {
	ids           IdentityProvider
	docs          store.DocumentStore
	cache         cache.Cache
	calendar      streak.Calendar
	logger        *slog.Logger
	collection    string
	retry         store.RetryConfig
	attachTimeout time.Duration

	mu        sync.Mutex
	epoch     uint64
	state     State
	version   int64 // last applied snapshot version
	healed    int64 // snapshot version a streak correction was issued for
	creating  bool
	pending   map[string]*pendingWrite
	nextToken uint64
	cancelSub func()
	sessCtx   context.Context
	sessStop  context.CancelFunc
	ready     chan struct{}
	readyErr  error

	listeners    map[int]func(State)
	nextListener int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to derive today.
func WithClock(c streak.Clock) Option {
	return func(m *Manager) { m.calendar.Clock = c }
}

// WithLocation sets the timezone whose calendar days count for streaks.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) { m.calendar.Location = loc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCollection overrides the profile collection name.
func WithCollection(name string) Option {
	return func(m *Manager) { m.collection = name }
}

// WithRetryConfig sets the backoff applied to transient store failures.
func WithRetryConfig(cfg store.RetryConfig) Option {
	return func(m *Manager) { m.retry = cfg }
}

// WithAttachTimeout bounds attaches triggered by Follow.
func WithAttachTimeout(d time.Duration) Option {
	return func(m *Manager) { m.attachTimeout = d }
}

// NewManager creates a detached Manager.
func NewManager(ids IdentityProvider, docs store.DocumentStore, c cache.Cache, opts ...Option) *Manager {
	m := &Manager{
		ids:           ids,
		cache:         c,
		calendar:      streak.NewCalendar(nil, nil),
		logger:        slog.Default(),
		collection:    profile.Collection,
		retry:         store.DefaultRetryConfig(),
		attachTimeout: 10 * time.Second,
		pending:       make(map[string]*pendingWrite),
		listeners:     make(map[int]func(State)),
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.docs = store.WithRetry(docs, m.retry)
	return m
}

// State returns a deep copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Today returns the current calendar day used for streaks.
func (m *Manager) Today() streak.Day {
	return m.calendar.Today()
}

// OnChange registers fn to receive a copy of the state after every change.
func (m *Manager) OnChange(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	key := m.nextListener
	m.nextListener++
	m.listeners[key] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, key)
		m.mu.Unlock()
	}
}

// snapshotLocked copies state and listeners for notification after unlock.
func (m *Manager) snapshotLocked() (State, []func(State)) {
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	return m.state.clone(), fns
}

func notify(s State, fns []func(State)) {
	for _, fn := range fns {
		fn(s.clone())
	}
}

// Follow attaches and detaches as src reports identity changes.
func (m *Manager) Follow(src IdentitySource) (unsubscribe func()) {
	m.mu.Lock()
	m.state.LoadingAuth = true
	m.mu.Unlock()

	return src.OnIdentityChanged(func(id *identity.Identity) {
		m.mu.Lock()
		m.state.LoadingAuth = false
		m.mu.Unlock()

		if id == nil {
			m.Detach()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.attachTimeout)
		defer cancel()
		if err := m.Attach(ctx, *id); err != nil {
			m.logger.Warn("attach profile", "uid", id.ID, "error", err)
		}
	})
}

// Attach switches the manager to id and returns once the profile resolved:
// an existing document was applied, creation of a missing one failed, the
// subscription failed, or ctx ended. Attaching the identity already attached
// only waits for that resolution, unless it failed.
func (m *Manager) Attach(ctx context.Context, id identity.Identity) error {
	m.mu.Lock()
	if cur := m.state.Identity; cur != nil && cur.ID == id.ID && !m.state.Degraded && !m.failedLocked() {
		ready := m.ready
		m.mu.Unlock()
		return m.wait(ctx, ready)
	}
	attached := m.state.Identity != nil
	m.mu.Unlock()

	if attached {
		m.Detach()
	}

	// Cache reads may leave the process, so they stay outside the lock.
	seed := prefill(m.cache, id.ID)

	m.mu.Lock()
	m.resetLocked()
	epoch := m.epoch
	m.state.Identity = &id
	m.state.LoadingProfile = true
	m.state.Profile = seed
	m.sessCtx, m.sessStop = context.WithCancel(context.Background())
	sessCtx := m.sessCtx
	ready := m.ready
	s, fns := m.snapshotLocked()
	m.mu.Unlock()
	notify(s, fns)

	cancelSub, err := m.docs.Subscribe(sessCtx, m.collection, id.ID, func(snap store.Snapshot) {
		m.onSnapshot(epoch, snap)
	})
	if err != nil {
		m.mu.Lock()
		if m.epoch == epoch {
			m.state.LoadingProfile = false
			m.state.Degraded = !store.IsTransient(err)
			m.resolveLocked(err)
		}
		s, fns := m.snapshotLocked()
		m.mu.Unlock()
		notify(s, fns)
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		cancelSub()
		return ErrDetached
	}
	m.cancelSub = cancelSub
	m.mu.Unlock()

	return m.wait(ctx, ready)
}

func (m *Manager) wait(ctx context.Context, ready chan struct{}) error {
	select {
	case <-ready:
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ready != ready {
			return ErrDetached
		}
		return m.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Detach cancels the subscription and forgets every profile field. The
// remote document is kept; late snapshots and write completions are ignored.
func (m *Manager) Detach() {
	m.mu.Lock()
	cancelSub := m.cancelSub
	m.resolveLocked(ErrDetached)
	m.resetLocked()
	s, fns := m.snapshotLocked()
	m.mu.Unlock()

	if cancelSub != nil {
		cancelSub()
	}
	notify(s, fns)
}

// Close detaches the manager.
func (m *Manager) Close() {
	m.Detach()
}

// resetLocked starts a new epoch with empty state.
func (m *Manager) resetLocked() {
	if m.sessStop != nil {
		m.sessStop()
	}
	m.epoch++
	m.state = State{LoadingAuth: m.state.LoadingAuth, Profile: profile.Profile{Progress: map[string]bool{}}}
	m.version = 0
	m.healed = 0
	m.creating = false
	m.pending = make(map[string]*pendingWrite)
	m.cancelSub = nil
	m.sessCtx, m.sessStop = nil, nil
	m.ready = make(chan struct{})
	m.readyErr = nil
}

// failedLocked reports whether the current attach resolved with an error.
func (m *Manager) failedLocked() bool {
	select {
	case <-m.ready:
		return m.readyErr != nil
	default:
		return false
	}
}

// resolveLocked releases Attach waiters once per epoch.
func (m *Manager) resolveLocked(err error) {
	select {
	case <-m.ready:
	default:
		m.readyErr = err
		close(m.ready)
	}
}

func (m *Manager) onSnapshot(epoch uint64, snap store.Snapshot) {
	m.mu.Lock()
	if m.epoch != epoch || m.state.Identity == nil {
		m.mu.Unlock()
		return
	}

	switch {
	case snap.Err != nil:
		m.onSubscriptionError(snap.Err)
	case !snap.Exists:
		m.onMissing(epoch)
	default:
		m.onDocument(snap)
	}
}

// onSubscriptionError is called with m.mu held and releases it.
func (m *Manager) onSubscriptionError(err error) {
	uid := m.state.Identity.ID
	if store.IsTransient(err) {
		m.mu.Unlock()
		m.logger.Warn("profile subscription hiccup", "uid", uid, "error", err)
		return
	}

	cancelSub := m.cancelSub
	m.cancelSub = nil
	m.state.Degraded = true
	m.state.LoadingProfile = false
	m.resolveLocked(err)
	s, fns := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Error("profile subscription failed, freezing profile", "uid", uid, "error", err)
	if cancelSub != nil {
		cancelSub()
	}
	notify(s, fns)
}

// onMissing is called with m.mu held and releases it. It creates the
// document from cached values with an insert-if-absent write.
func (m *Manager) onMissing(epoch uint64) {
	if m.creating {
		m.mu.Unlock()
		return
	}
	m.creating = true

	id := *m.state.Identity
	now := m.calendar.Now()
	seed := m.state.Profile.Clone()
	if seed.Name == "" {
		seed.Name = id.DisplayName
	}
	seed.Email = id.Email
	seed.DailyStreak = 0
	seed.LastLoginDate = streak.DayOf(now, m.calendar.Location)
	seed.CreatedAt = now.UTC()
	m.state.Profile = seed.Clone()
	ctx := m.sessCtx
	s, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(s, fns)
	mirror(m.cache, id.ID, seed)

	_, err := m.docs.Create(ctx, m.collection, id.ID, seed.Fields())
	if errors.Is(err, store.ErrAlreadyExists) {
		// A write that raced the create left a partial document.
		err = m.fillSeed(ctx, id.ID, seed)
	}
	if err == nil {
		// The subscription delivers the stored document.
		m.logger.Info("profile created", "uid", id.ID)
		return
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.creating = false
	m.state.LoadingProfile = false
	if store.IsPermanent(err) {
		m.state.Degraded = true
	}
	m.resolveLocked(&ProfileWriteError{Op: "createProfile", Err: err})
	s, fns = m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Error("create profile", "uid", id.ID, "error", err)
	notify(s, fns)
}

// fillSeed writes the seed fields the stored document lacks. Present fields
// are kept.
func (m *Manager) fillSeed(ctx context.Context, uid string, seed profile.Profile) error {
	_, err := m.docs.Update(ctx, m.collection, uid, func(cur *store.Document) (store.Fields, error) {
		if cur == nil {
			return seed.Fields(), nil
		}
		var missing store.Fields
		for k, v := range seed.Fields() {
			if v == nil || cur.Data[k] != nil {
				continue
			}
			if missing == nil {
				missing = store.Fields{}
			}
			missing[k] = v
		}
		return missing, nil
	})
	if err == nil {
		m.logger.Debug("profile seed merged into existing document", "uid", uid)
	}
	return err
}

// onDocument is called with m.mu held and releases it.
func (m *Manager) onDocument(snap store.Snapshot) {
	uid := m.state.Identity.ID
	if snap.Version <= m.version {
		m.mu.Unlock()
		return
	}

	p, err := profile.FromFieldsIn(snap.Data, m.calendar.Location)
	if err != nil {
		m.version = snap.Version
		m.state.LoadingProfile = false
		m.resolveLocked(err)
		m.mu.Unlock()
		m.logger.Error("decode profile", "uid", uid, "version", snap.Version, "error", err)
		return
	}

	for key, pw := range m.pending {
		if pw.version != 0 && snap.Version >= pw.version {
			delete(m.pending, key)
		}
	}
	applyOverlay(&p, m.pending)

	fix := streak.Validate(p.DailyStreak, p.LastLoginDate, m.calendar.Today())
	heal := fix.Needed && m.healed == 0
	if fix.Needed {
		p.DailyStreak = fix.DailyStreak
		p.LastLoginDate = fix.LastLoginDate
	}
	if heal {
		m.healed = snap.Version
	}

	m.version = snap.Version
	m.creating = false
	m.state.Profile = p
	m.state.LoadingProfile = false
	m.resolveLocked(nil)
	ctx := m.sessCtx
	s, fns := m.snapshotLocked()
	m.mu.Unlock()

	mirror(m.cache, uid, p)
	notify(s, fns)

	if heal {
		m.heal(ctx, snap.Version, uid)
	}
}

// heal writes a streak correction, re-validating against the stored document
// so a concurrent increment is never overwritten.
func (m *Manager) heal(ctx context.Context, version int64, uid string) {
	today := m.calendar.Today()
	_, err := m.docs.Update(ctx, m.collection, uid, func(cur *store.Document) (store.Fields, error) {
		if cur == nil {
			return nil, nil
		}
		p, err := profile.FromFieldsIn(cur.Data, m.calendar.Location)
		if err != nil {
			return nil, err
		}
		fix := streak.Validate(p.DailyStreak, p.LastLoginDate, today)
		if !fix.Needed {
			return nil, nil
		}
		return profile.StreakFields(fix.DailyStreak, fix.LastLoginDate), nil
	})
	if err != nil {
		m.logger.Warn("streak correction failed", "uid", uid, "version", version, "error", err)
		m.mu.Lock()
		if m.healed == version {
			m.healed = 0
		}
		m.mu.Unlock()
		return
	}
	m.logger.Info("streak corrected", "uid", uid, "from_version", version)

	m.mu.Lock()
	if m.healed == version {
		m.healed = 0
	}
	m.mu.Unlock()
}

// begin checks the write preconditions and returns the attached identity.
func (m *Manager) begin(op string) (identity.Identity, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Identity == nil {
		return identity.Identity{}, 0, ErrNoIdentity
	}
	if m.state.Degraded {
		return identity.Identity{}, 0, &ProfileWriteError{Op: op, Err: ErrDegraded}
	}
	return *m.state.Identity, m.epoch, nil
}

// optimistic applies value to memory ahead of the write and records it in
// the overlay. It returns the token identifying this write.
func (m *Manager) optimistic(epoch uint64, key string, value any) (uint64, bool) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return 0, false
	}
	m.nextToken++
	token := m.nextToken
	m.pending[key] = &pendingWrite{token: token, value: value}
	applyValue(&m.state.Profile, key, value)
	s, fns := m.snapshotLocked()
	m.mu.Unlock()

	notify(s, fns)
	return token, true
}

// settle records the outcome of an optimistic write.
func (m *Manager) settle(epoch uint64, key string, token uint64, version int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	pw, ok := m.pending[key]
	if !ok || pw.token != token {
		return
	}
	if err != nil || version <= m.version {
		delete(m.pending, key)
		return
	}
	pw.version = version
}

// SetLevel stores the learner's level.
func (m *Manager) SetLevel(ctx context.Context, level profile.Level) error {
	const op = "setLevel"
	if !level.Valid() {
		return &ProfileWriteError{Op: op, Err: profile.ErrInvalidLevel}
	}
	id, epoch, err := m.begin(op)
	if err != nil {
		return err
	}

	token, ok := m.optimistic(epoch, overlayLevel, level)
	if !ok {
		return ErrDetached
	}
	setOrRemove(m.cache, levelKey(id.ID), string(level))

	v, err := m.docs.MergeWrite(ctx, m.collection, id.ID, store.Fields{
		profile.FieldLevel: nullable(string(level)),
	})
	m.settle(epoch, overlayLevel, token, v, err)
	if err != nil {
		m.logger.Warn("write level", "uid", id.ID, "error", err)
		return &ProfileWriteError{Op: op, Err: err}
	}
	return nil
}

// SetDisplayName stores the learner's name and, when alsoUpdateIdentity is
// set and the identity's name differs, the identity record too. Both writes
// are attempted even if the first fails.
func (m *Manager) SetDisplayName(ctx context.Context, name string, alsoUpdateIdentity bool) error {
	const op = "setDisplayName"
	name = strings.TrimSpace(name)
	id, epoch, err := m.begin(op)
	if err != nil {
		return err
	}

	token, ok := m.optimistic(epoch, overlayName, name)
	if !ok {
		return ErrDetached
	}
	setOrRemove(m.cache, nameKey(id.ID), name)

	v, docErr := m.docs.MergeWrite(ctx, m.collection, id.ID, store.Fields{
		profile.FieldName: nullable(name),
	})
	m.settle(epoch, overlayName, token, v, docErr)

	var idErr error
	if alsoUpdateIdentity && m.ids != nil && id.DisplayName != name {
		idErr = m.ids.UpdateDisplayName(ctx, id, name)
		if idErr == nil {
			m.mu.Lock()
			if m.epoch == epoch && m.state.Identity != nil {
				m.state.Identity.DisplayName = name
			}
			s, fns := m.snapshotLocked()
			m.mu.Unlock()
			notify(s, fns)
		}
	}

	if err := errors.Join(docErr, idErr); err != nil {
		m.logger.Warn("write display name", "uid", id.ID, "error", err)
		return &ProfileWriteError{Op: op, Err: err}
	}
	return nil
}

// MarkLessonComplete merges one lesson's completion flag into progress.
func (m *Manager) MarkLessonComplete(ctx context.Context, lessonID string, completed bool) error {
	const op = "markLessonComplete"
	if err := profile.ValidateLessonID(lessonID); err != nil {
		return &ProfileWriteError{Op: op, Err: err}
	}
	id, epoch, err := m.begin(op)
	if err != nil {
		return err
	}

	key := profile.ProgressPath(lessonID)
	token, ok := m.optimistic(epoch, key, completed)
	if !ok {
		return ErrDetached
	}
	m.mu.Lock()
	progress := m.state.clone().Profile.Progress
	m.mu.Unlock()
	mirrorProgress(m.cache, id.ID, progress)

	v, err := m.docs.MergeWrite(ctx, m.collection, id.ID, store.Fields{key: completed})
	m.settle(epoch, key, token, v, err)
	if err != nil {
		m.logger.Warn("write progress", "uid", id.ID, "lesson", lessonID, "error", err)
		return &ProfileWriteError{Op: op, Err: err}
	}
	return nil
}

// IncrementStreak counts today's visit. It is a no-op while signed out and
// when today was already counted. Memory is updated by the subscription only.
func (m *Manager) IncrementStreak(ctx context.Context) error {
	const op = "incrementStreak"
	id, _, err := m.begin(op)
	if errors.Is(err, ErrNoIdentity) {
		return nil
	}
	if err != nil {
		return err
	}

	today := m.calendar.Today()
	_, err = m.docs.Update(ctx, m.collection, id.ID, func(cur *store.Document) (store.Fields, error) {
		if cur == nil {
			return nil, store.ErrNotFound
		}
		p, err := profile.FromFieldsIn(cur.Data, m.calendar.Location)
		if err != nil {
			return nil, err
		}
		return streakPatch(p, today), nil
	})
	if store.IsTransient(err) {
		m.logger.Warn("streak update fell back to last known values", "uid", id.ID, "error", err)
		m.mu.Lock()
		known := m.state.Profile
		m.mu.Unlock()
		if patch := streakPatch(known, today); patch != nil {
			_, err = m.docs.MergeWrite(ctx, m.collection, id.ID, patch)
		} else {
			err = nil
		}
	}
	if err != nil {
		return &ProfileWriteError{Op: op, Err: err}
	}
	return nil
}

func streakPatch(p profile.Profile, today streak.Day) store.Fields {
	next, changed := streak.Next(p.DailyStreak, p.LastLoginDate, today)
	if !changed {
		return nil
	}
	return profile.StreakFields(next, today)
}

// ResetStreak sets the streak to zero, keeping the last visit date.
func (m *Manager) ResetStreak(ctx context.Context) error {
	const op = "resetStreak"
	id, _, err := m.begin(op)
	if errors.Is(err, ErrNoIdentity) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := m.docs.MergeWrite(ctx, m.collection, id.ID, store.Fields{profile.FieldDailyStreak: 0}); err != nil {
		return &ProfileWriteError{Op: op, Err: err}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
