package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grupomaster/raqs/app"
	"github.com/grupomaster/raqs/internal/database"
	"github.com/grupomaster/raqs/internal/events"
	"github.com/grupomaster/raqs/internal/logging"
	"github.com/grupomaster/raqs/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply schema migrations before serving")
}

func newPublisher() (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		logging.LogWarn(logger, "AMQP_URL not set, domain events are discarded")
		return events.NopPublisher{}, nil
	}
	return events.Dial(cfg.AMQPURL, cfg.AMQPQueue)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logging.LogError(logger, "Error closing database", err)
		}
	}()
	if migrateOnStart {
		if err := models.Migrate(db); err != nil {
			return err
		}
	}

	publisher, err := newPublisher()
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.LogError(logger, "Error closing event publisher", err)
		}
	}()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: app.NewRouter(&app.Dependencies{
			Logger:         logger,
			DB:             db,
			Publisher:      publisher,
			ValidityMonths: cfg.ValidityMonths,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.LogInfo(logger, "Starting server on "+cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.LogInfo(logger, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
