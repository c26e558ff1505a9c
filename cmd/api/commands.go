package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/vamp/backend/internal/config"
	"github.com/emilythestrangee/vamp/backend/internal/database"
	"github.com/emilythestrangee/vamp/backend/internal/logging"
	"github.com/emilythestrangee/vamp/backend/internal/memstore"
	"github.com/emilythestrangee/vamp/backend/internal/server"
	"github.com/emilythestrangee/vamp/backend/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vamp",
		Short:         "Vote and grant application engine for the VAMP platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newAuditCmd())
	return root
}

// bootstrap loads configuration and builds the service logger.
func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New("vamp-api", cfg.LogLevel), nil
}

func newServeCmd() *cobra.Command {
	var inMemory, migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			shutdownTracing, err := telemetry.Setup("vamp-api", cfg.TraceStdout)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					log.WithError(err).Warn("tracer shutdown failed")
				}
			}()

			var srv *server.Server
			if inMemory {
				log.Warn("serving from the in-memory store; data is lost on exit")
				srv = server.New(cfg, log, memstore.New(), nil)
			} else {
				db, err := database.New(cfg.Database, log)
				if err != nil {
					log.WithError(err).Error("failed to initialize database")
					return err
				}
				defer db.Close()

				if migrate {
					if err := db.Migrate(); err != nil {
						return err
					}
				}
				srv = server.New(cfg, log, database.NewStore(db.GetDB()), db.Health)
			}

			return run(cmd.Context(), log, srv.HTTPServer())
		},
	}

	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep all state in process memory instead of Postgres")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests.
func run(parent context.Context, log *logrus.Logger, httpServer *http.Server) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("🚀 Server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := database.New(cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

// newAuditCmd reports targets whose stored vote_count disagrees with the
// number of vote rows behind it.
func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Compare stored vote and reply counts with live rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := database.New(cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			store := database.NewStore(db.GetDB())
			drift, err := store.CounterDrift(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range drift {
				log.WithFields(logrus.Fields{
					"kind":       d.Kind,
					"target_id":  d.TargetID,
					"stored":     d.Stored,
					"live_votes": d.LiveVotes,
				}).Warn("vote counter drift")
			}
			replies, err := store.ReplyDrift(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range replies {
				log.WithFields(logrus.Fields{
					"thread_id":    d.ThreadID,
					"stored":       d.Stored,
					"live_replies": d.LiveReplies,
				}).Warn("reply counter drift")
			}
			if n := len(drift) + len(replies); n > 0 {
				return fmt.Errorf("%d counters have drifted", n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all counters consistent")
			return nil
		},
	}
}
