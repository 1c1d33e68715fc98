package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idfort.org/internal/audit"
	"idfort.org/internal/config"
	"idfort.org/internal/httpapi"
	"idfort.org/internal/iam"
	"idfort.org/internal/migrate"
	"idfort.org/internal/obs"
	"idfort.org/internal/session"
	"idfort.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fallback := obs.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger(cfg.LogLevel)

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("IDFORT_PG_DSN is required")
	}
	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	// Startup auto-migration keeps single-node deploys simple; cmd/migrate
	// exists for anything more controlled.
	migrateCtx, cancelMigrate := context.WithTimeout(ctx, 30*time.Second)
	if err := migrate.NewManager(store.DB(), migrate.Embedded()).Up(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatal().Err(err).Msg("apply migrations")
	}
	cancelMigrate()

	accounts, err := iam.NewService(store,
		iam.WithRegistration(cfg.RegistrationEnabled),
		iam.WithUsernamePolicy(cfg.UsernameEnabled, cfg.UsernameRequired),
		iam.WithHasher(iam.NewHasher(cfg.PasswordSalt)),
		iam.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build account service")
	}

	bootstrapCtx, cancelBootstrap := context.WithTimeout(ctx, 30*time.Second)
	err = accounts.Bootstrap(bootstrapCtx,
		iam.BootstrapAccount(cfg.Admin),
		iam.BootstrapAccount(cfg.SuperAdmin),
	)
	cancelBootstrap()
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap default roles and accounts")
	}

	sessions, err := session.NewManager(cfg.SessionSecret, session.WithTTL(cfg.SessionTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("build session manager")
	}
	defer sessions.Close()

	api := httpapi.New(
		httpapi.ReadyProbe{DB: store.DB()},
		version,
		accounts,
		sessions,
		audit.New(log),
		log,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting idfort-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("stopped")
}
