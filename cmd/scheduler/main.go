// Command scheduler runs tournament generation, status advancement and
// liveness checks against the tournament service.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tournament-engine/clients"
	"tournament-engine/config"
	"tournament-engine/storage"
	"tournament-engine/templates"
	"tournament-engine/utils"
	"tournament-engine/workers"
)

func main() {
	cfg, err := config.LoadScheduler()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	logger := utils.NewLogger(cfg.LogLevel).With("component", "scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := utils.NewHTTPClient(cfg.HTTPTimeout)
	auth := clients.NewAuthServiceClient(cfg.AuthServiceURL, httpClient)
	api := clients.NewCredentialedClient(cfg.TournamentServiceURL, httpClient, auth,
		cfg.Username, cfg.Password, cfg.RequestsPerSecond, logger.With("client", "tournament_service"))
	tournaments := clients.NewTournamentClient(api)

	var (
		claims  workers.SlotClaimer = workers.NoopSlotClaims{}
		pinger  workers.Pinger
		closers []io.Closer
	)
	if cfg.RedisURL != "" {
		rc, err := workers.NewRedisSlotClaims(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		claims, pinger = rc, rc
		closers = append(closers, rc)
		logger.Info("✅ redis slot claims enabled")
	}

	var archive storage.Archiver = storage.LogArchive{Logger: logger}
	if cfg.R2.Enabled() {
		r2, err := storage.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archive = r2
		logger.Info("✅ generation reports archived to R2", "bucket", cfg.R2.Bucket)
	}

	orch := &workers.Orchestrator{
		Generation: &workers.Generation{
			API:              tournaments,
			Templates:        templates.Catalog{},
			GameTypes:        templates.GameTypes(),
			Claims:           claims,
			Archive:          archive,
			Interval:         cfg.GenerationInterval(),
			Duration:         cfg.TournamentDuration,
			RegistrationLead: cfg.RegistrationLead,
			CheckInLead:      cfg.CheckInLead,
			Workers:          cfg.GenerationWorkers,
			Logger:           logger.With("task", "generation"),
		},
		Advancement: &workers.Advancement{
			API:    tournaments,
			Logger: logger.With("task", "advancement"),
		},
		Liveness: &workers.Liveness{
			Store:    tournaments,
			Identity: auth,
			Redis:    pinger,
			Timeout:  cfg.HTTPTimeout,
			Logger:   logger.With("task", "liveness"),
		},
		GenerationInterval:  cfg.GenerationInterval(),
		AdvancementInterval: cfg.AdvancementInterval(),
		HealthInterval:      cfg.HealthInterval(),
		Closers:             closers,
		Logger:              logger,
	}

	if err := orch.Start(ctx); err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	logger.Info("✅ Scheduler running",
		"tournament_service", cfg.TournamentServiceURL,
		"auth_service", cfg.AuthServiceURL,
	)

	<-ctx.Done()
	logger.Info("Shutting down scheduler...")
	if err := orch.Shutdown(); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
