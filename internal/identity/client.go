package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frenchbreeze/breeze/internal/cache"
)

// SessionKey is the cache key holding the signed-in token.
const SessionKey = "frenchBreezeSession"

// Client holds a single signed-in session on top of a Service and notifies
// listeners whenever the identity changes.
type Client struct {
	svc    *Service
	cache  cache.Cache
	logger *slog.Logger

	mu        sync.Mutex
	current   *Identity
	claims    *Claims
	listeners map[int]func(*Identity)
	nextID    int
}

// NewClient creates a signed-out Client. Call Restore to resume a cached session.
func NewClient(svc *Service, c cache.Cache, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, cache: c, logger: logger, listeners: make(map[int]func(*Identity))}
}

// Restore resumes the session stored in the cache, if it is still valid.
func (c *Client) Restore(ctx context.Context) *Identity {
	raw, ok := c.cache.Get(SessionKey)
	if !ok {
		return nil
	}
	id, claims, err := c.svc.VerifyToken(raw)
	if err != nil {
		c.logger.Debug("discarding stored session", "error", err)
		c.cache.Remove(SessionKey)
		return nil
	}
	if fresh, err := c.svc.Lookup(ctx, id.ID); err == nil {
		id = fresh
	}
	c.set(&id, claims, "")
	return &id
}

// SignUp creates an account and signs in.
func (c *Client) SignUp(ctx context.Context, email, password string) (Identity, error) {
	id, err := c.svc.SignUp(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	return id, c.signIn(id)
}

// SignIn verifies a password and signs in.
func (c *Client) SignIn(ctx context.Context, email, password string) (Identity, error) {
	id, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	return id, c.signIn(id)
}

// SignInWithSocial signs in through a registered third-party provider with
// the credential its sign-in flow produced.
func (c *Client) SignInWithSocial(ctx context.Context, provider, credential string) (Identity, error) {
	id, err := c.svc.SignInWithSocial(ctx, provider, credential)
	if err != nil {
		return Identity{}, err
	}
	return id, c.signIn(id)
}

func (c *Client) signIn(id Identity) error {
	token, err := c.svc.IssueToken(id)
	if err != nil {
		return authErr(KindUnknown, err)
	}
	_, claims, err := c.svc.VerifyToken(token)
	if err != nil {
		return err
	}
	c.set(&id, claims, token)
	return nil
}

// SignOut clears the session and revokes its token.
func (c *Client) SignOut() {
	c.mu.Lock()
	claims := c.claims
	c.mu.Unlock()
	c.svc.Revoke(claims)
	c.cache.Remove(SessionKey)
	c.set(nil, nil, "")
}

// Current returns the signed-in identity, or nil.
func (c *Client) Current() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// UpdateDisplayName updates the account and the cached identity.
func (c *Client) UpdateDisplayName(ctx context.Context, id Identity, name string) error {
	if err := c.svc.UpdateDisplayName(ctx, id, name); err != nil {
		return err
	}
	c.mu.Lock()
	if c.current != nil && c.current.ID == id.ID {
		c.current.DisplayName = name
	}
	c.mu.Unlock()
	return nil
}

// OnIdentityChanged registers fn and immediately calls it with the current
// identity. The returned func unregisters it.
func (c *Client) OnIdentityChanged(fn func(*Identity)) func() {
	c.mu.Lock()
	key := c.nextID
	c.nextID++
	c.listeners[key] = fn
	cur := c.current
	c.mu.Unlock()

	if cur != nil {
		cp := *cur
		fn(&cp)
	} else {
		fn(nil)
	}

	return func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.mu.Unlock()
	}
}

// set swaps the session and notifies listeners outside the lock.
func (c *Client) set(id *Identity, claims *Claims, token string) {
	c.mu.Lock()
	c.current = id
	c.claims = claims
	fns := make([]func(*Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if token != "" {
		c.cache.Set(SessionKey, token)
	}
	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}
