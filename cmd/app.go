package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/config"
	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/session"
	"github.com/frenchbreeze/breeze/internal/store"
	"github.com/frenchbreeze/breeze/internal/store/mongostore"
	"github.com/frenchbreeze/breeze/internal/streak"
	"github.com/frenchbreeze/breeze/internal/sweep"
)

// devSecret signs tokens outside production when BREEZE_JWT_SECRET is unset.
const devSecret = "french-breeze-development-secret"

// app holds the dependencies shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	loc      *time.Location
	docs     sweep.Store
	accounts store.AccountRepo
	cache    cache.Cache
	auth     *identity.Service
	catalog  *content.Catalog

	closers []func() error
}

// openApp loads configuration and opens the configured store and cache.
func openApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.DSN = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, loc: loc, catalog: content.Default()}
	if err := a.openStore(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = devSecret
	}
	authOpts := []identity.Option{identity.WithRevocationCache(a.cache), identity.WithLogger(logger)}
	if cfg.Auth.GoogleClientID != "" {
		authOpts = append(authOpts, identity.WithSocialFlow(identity.ProviderGoogle, identity.NewGoogleFlow(cfg.Auth.GoogleClientID)))
	}
	a.auth = identity.NewService(a.accounts, identity.Config{
		Secret:   []byte(secret),
		TokenTTL: cfg.Auth.TokenTTL,
		Issuer:   "breeze",
	}, authOpts...)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	var base store.DocumentStore
	switch a.cfg.DB.Driver {
	case config.DriverMongo:
		ms, err := mongostore.Connect(ctx, a.cfg.DB.MongoURI, a.cfg.DB.MongoDB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, ms.Close)
		base, a.accounts = ms.Documents(), ms.Accounts()
	default:
		dsn := a.cfg.DB.DSN
		if a.cfg.DB.Driver == config.DriverSQLite {
			if dsn == "" {
				p, err := store.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("resolve DB path: %w", err)
				}
				dsn = p
			} else if err := store.EnsureDir(dsn); err != nil {
				return err
			}
		}
		st, err := store.Open(a.cfg.DB.Driver, dsn)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		base, a.accounts = st.Documents(), st.Accounts()
	}

	a.docs = store.WithLogging(base, a.logger)
	return nil
}

func (a *app) openCache(ctx context.Context) error {
	switch a.cfg.Cache.Backend {
	case config.CacheMemory:
		a.cache = cache.NewMemory()
	case config.CacheRedis:
		rc, err := cache.ConnectRedis(ctx, a.cfg.Cache.RedisURL, a.cfg.Auth.TokenTTL, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc.Close)
		a.cache = rc
	default:
		path, err := cache.DefaultPath()
		if err != nil {
			return err
		}
		if a.cfg.Cache.Dir != "" {
			path = filepath.Join(a.cfg.Cache.Dir, "cache.json")
		}
		fc, err := cache.OpenFile(path, a.logger)
		if err != nil {
			return err
		}
		a.cache = fc
	}
	return nil
}

// Close releases the store and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
}

func (a *app) retryConfig() store.RetryConfig {
	cfg := store.DefaultRetryConfig()
	cfg.MaxAttempts = a.cfg.RetryAttempts
	return cfg
}

// newManager builds a session manager; it applies the retry policy itself.
func (a *app) newManager(ids session.IdentityProvider) *session.Manager {
	return session.NewManager(ids, a.docs, a.cache,
		session.WithLocation(a.loc),
		session.WithLogger(a.logger),
		session.WithRetryConfig(a.retryConfig()),
	)
}

func (a *app) newSweeper(workers int) *sweep.Sweeper {
	return sweep.New(store.WithRetry(a.docs, a.retryConfig()),
		sweep.WithCalendar(streak.NewCalendar(nil, a.loc)),
		sweep.WithLogger(a.logger),
		sweep.WithWorkers(workers),
	)
}

// errSignedOut is returned by commands that need a signed-in learner.
var errSignedOut = errors.New("not signed in; run `breeze signin` or `breeze signup` first")

// learner is the signed-in state of a CLI invocation.
type learner struct {
	*app
	client  *identity.Client
	manager *session.Manager
	stop    func()
}

// openLearner restores the cached session and attaches its profile.
func openLearner(cmd *cobra.Command, requireIdentity bool) (*learner, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	l := &learner{app: a, client: identity.NewClient(a.auth, a.cache, a.logger)}
	l.client.Restore(cmd.Context())
	l.manager = a.newManager(l.client)
	l.stop = l.manager.Follow(l.client)

	if requireIdentity && l.client.Current() == nil {
		l.Close()
		return nil, errSignedOut
	}
	if st := l.manager.State(); st.Degraded {
		l.Close()
		return nil, session.ErrDegraded
	}
	return l, nil
}

func (l *learner) Close() {
	l.stop()
	l.manager.Close()
	l.app.Close()
}

// await blocks until pred holds for the session state or timeout passes.
// Writes that are only reflected by the subscription use it before rendering.
func (l *learner) await(pred func(session.State) bool, timeout time.Duration) session.State {
	done := make(chan struct{}, 1)
	unsubscribe := l.manager.OnChange(func(st session.State) {
		if pred(st) {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if st := l.manager.State(); pred(st) {
		return st
	}
	select {
	case <-done:
	case <-time.After(timeout):
	}
	return l.manager.State()
}

// countVisit increments the streak and waits for the new value to land.
func (l *learner) countVisit(ctx context.Context) session.State {
	if err := l.manager.IncrementStreak(ctx); err != nil {
		l.logger.Warn("count visit", "error", err)
		return l.manager.State()
	}
	today := l.manager.Today()
	return l.await(func(st session.State) bool {
		return st.Profile.LastLoginDate.String() == today.String() && st.Profile.DailyStreak > 0
	}, 2*time.Second)
}
