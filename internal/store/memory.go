package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process DocumentStore and AccountRepo. It is used by tests
// and by the CLI when no database is configured.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]*Document
	accounts map[string]*Account
	version  int64
	creates  map[string]int
	writeErr error
	broker   *Broker
}

var (
	_ DocumentStore = (*Memory)(nil)
	_ Lister        = (*Memory)(nil)
	_ AccountRepo   = (*Memory)(nil)
)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]*Document),
		accounts: make(map[string]*Account),
		creates:  make(map[string]int),
		broker:   NewBroker(),
	}
}

// SetWriteError makes every following write fail with err until reset with nil.
func (m *Memory) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// FailSubscribers delivers err to every subscriber of the document.
func (m *Memory) FailSubscribers(collection, key string, err error) {
	m.broker.Publish(Snapshot{Collection: collection, Key: key, Err: err})
}

// CreateCount returns how many times Create inserted the document.
func (m *Memory) CreateCount(collection, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates[topic(collection, key)]
}

// Subscribers returns the number of live subscriptions on a document.
func (m *Memory) Subscribers(collection, key string) int {
	return m.broker.Subscribers(collection, key)
}

func (m *Memory) Get(ctx context.Context, collection, key string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[topic(collection, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (m *Memory) Create(ctx context.Context, collection, key string, data Fields) (int64, error) {
	return m.apply(ctx, collection, key, true, func(*Document) (Fields, error) { return data, nil })
}

func (m *Memory) MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error) {
	return m.apply(ctx, collection, key, false, func(*Document) (Fields, error) { return fields, nil })
}

func (m *Memory) Update(ctx context.Context, collection, key string, fn UpdateFunc) (int64, error) {
	return m.apply(ctx, collection, key, false, fn)
}

// apply holds the lock across the transform, so updates are serializable.
func (m *Memory) apply(ctx context.Context, collection, key string, createOnly bool, fn UpdateFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return 0, err
	}

	t := topic(collection, key)
	cur, exists := m.docs[t]
	if createOnly && exists {
		m.mu.Unlock()
		return 0, ErrAlreadyExists
	}

	var view *Document
	if exists {
		view = copyDocument(cur)
	}
	patch, err := fn(view)
	if err != nil || patch == nil {
		m.mu.Unlock()
		if exists {
			return cur.Version, err
		}
		return 0, err
	}

	m.version++
	now := time.Now().UTC()
	next := &Document{Collection: collection, Key: key, Version: m.version, UpdatedAt: now}
	if exists {
		next.Data = Merge(cur.Data, patch)
		next.CreatedAt = cur.CreatedAt
	} else {
		next.Data = Merge(nil, patch)
		next.CreatedAt = now
		m.creates[t]++
	}
	m.docs[t] = next
	snap := Snapshot{Collection: collection, Key: key, Exists: true, Data: CopyFields(next.Data), Version: next.Version}
	m.mu.Unlock()

	m.broker.Publish(snap)
	return snap.Version, nil
}

func (m *Memory) Subscribe(ctx context.Context, collection, key string, fn func(Snapshot)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := m.broker.Subscribe(collection, key, fn)

	initial := Snapshot{Collection: collection, Key: key}
	m.mu.Lock()
	if doc, ok := m.docs[topic(collection, key)]; ok {
		initial.Exists = true
		initial.Data = CopyFields(doc.Data)
		initial.Version = doc.Version
	}
	m.mu.Unlock()

	sub.Offer(initial)
	sub.CancelOnDone(ctx)
	return sub.Cancel, nil
}

func (m *Memory) Keys(_ context.Context, collection string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, doc := range m.docs {
		if doc.Collection == collection {
			keys = append(keys, doc.Key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *Memory) CreateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(a.Email)
	for _, existing := range m.accounts {
		if existing.Email == email {
			return ErrAlreadyExists
		}
	}
	cp := *a
	cp.Email = email
	m.accounts[a.ID] = &cp
	return nil
}

func (m *Memory) AccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) AccountByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) SetDisplayName(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.DisplayName = name
	return nil
}

func copyDocument(d *Document) *Document {
	cp := *d
	cp.Data = CopyFields(d.Data)
	return &cp
}
