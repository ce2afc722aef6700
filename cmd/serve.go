package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/frenchbreeze/breeze/internal/api"
	"github.com/frenchbreeze/breeze/internal/session"
	"github.com/frenchbreeze/breeze/internal/sweep"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the learner API and run the daily streak sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Addr = addr
		}
		noSweep, _ := cmd.Flags().GetBool("no-sweep")

		registry := session.NewRegistry(func() *session.Manager {
			return a.newManager(a.auth)
		}, session.WithRegistryLogger(a.logger))
		defer registry.Close()

		srv := &http.Server{
			Addr: a.cfg.Addr,
			Handler: api.New(a.auth, registry, a.catalog, api.Config{
				AllowedOrigins: a.cfg.AllowedOrigins,
				Logger:         a.logger,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Info("listening", "addr", a.cfg.Addr, "db", a.cfg.DB.Driver, "cache", a.cfg.Cache.Backend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			return registry.RunJanitor(ctx, time.Minute, a.cfg.SessionIdle)
		})
		if !noSweep {
			sw := a.newSweeper(0)
			g.Go(func() error {
				return sweep.NewScheduler(sw, a.loc, a.cfg.SweepAt).Run(ctx)
			})
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides BREEZE_ADDR)")
	serveCmd.Flags().Bool("no-sweep", false, "Disable the scheduled streak sweep")
}
