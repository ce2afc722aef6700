package store

import (
	"context"
	"sync"
)

// Snapshot is one observation of a document delivered to a subscriber.
// Err is set when the subscription itself failed; the other fields are then
// meaningless.
type Snapshot struct {
	Collection string
	Key        string
	Exists     bool
	Data       Fields
	Version    int64
	Err        error
}

// Broker fans committed snapshots out to subscribers of a document. Each
// subscription has its own delivery goroutine; snapshots that arrive while
// the subscriber is busy are coalesced to the newest, and versions at or
// below the last accepted one are dropped.
//
// TODO: publish Postgres commits with LISTEN/NOTIFY so replicas sharing a
// database see each other's writes.
type Broker struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]*Subscription
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]*Subscription)}
}

func topic(collection, key string) string {
	return collection + "/" + key
}

// Subscription is one registered subscriber of a Broker.
type Subscription struct {
	fn     func(Snapshot)
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
	remove func()

	mu      sync.Mutex
	pending *Snapshot
	latest  int64
}

// Subscribe registers fn for a document.
func (b *Broker) Subscribe(collection, key string, fn func(Snapshot)) *Subscription {
	sub := &Subscription{
		fn:     fn,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		latest: -1,
	}

	t := topic(collection, key)
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[t] == nil {
		b.subs[t] = make(map[uint64]*Subscription)
	}
	b.subs[t][id] = sub
	b.mu.Unlock()

	sub.remove = func() {
		b.mu.Lock()
		delete(b.subs[t], id)
		if len(b.subs[t]) == 0 {
			delete(b.subs, t)
		}
		b.mu.Unlock()
	}

	go sub.run()
	return sub
}

// Cancel stops delivery. It is idempotent and safe to call from the callback.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.remove()
	})
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// CancelOnDone cancels the subscription when ctx ends.
func (s *Subscription) CancelOnDone(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()
}

// Publish offers snap to every subscriber of its document.
func (b *Broker) Publish(snap Snapshot) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs[topic(snap.Collection, snap.Key)]))
	for _, s := range b.subs[topic(snap.Collection, snap.Key)] {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.Offer(snap)
	}
}

// Subscribers returns the number of live subscriptions on a document.
func (b *Broker) Subscribers(collection, key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic(collection, key)])
}

// Offer queues snap for delivery to this subscriber only.
func (s *Subscription) Offer(snap Snapshot) {
	s.mu.Lock()
	if snap.Err == nil {
		if snap.Version <= s.latest {
			s.mu.Unlock()
			return
		}
		s.latest = snap.Version
	}
	snap.Data = CopyFields(snap.Data)
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		s.mu.Unlock()
		if snap == nil {
			continue
		}

		select {
		case <-s.done:
			return
		default:
		}
		s.fn(*snap)
	}
}
