package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/CircleVault-Network/vault_engine/internal/app"
	"github.com/CircleVault-Network/vault_engine/internal/app/config"
	"github.com/CircleVault-Network/vault_engine/internal/app/httpapi"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/internal/app/storage/postgres"
	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

func main() {
	// Optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("engine").WithError(err).Error("load configuration")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.LoggerConfig()).WithField("module", "engine")

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Error("apply migrations")
			os.Exit(1)
		}

		store := postgres.New(db)
		stores.Directory = store
		stores.Vaults = store
		log.Info("using postgres registry")
	} else {
		log.Warn("DATABASE_DSN not set; using in-memory registry")
	}

	application, err := app.New(stores, log, app.WithSweepSchedule(cfg.Sweeper.Schedule))
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Directory.EnsureAdmin(ctx, cfg.Directory.BootstrapAdmin); err != nil {
		log.WithError(err).Error("bootstrap admin")
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start services")
		os.Exit(1)
	}

	handler := httpapi.WithAuth(httpapi.NewHandler(application), cfg.Server.Tokens())
	handler = httpapi.WithRateLimit(handler, cfg.Server.RateLimitRPS)
	handler = metrics.InstrumentHandler(handler)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}
	log.Info("engine stopped")
}
