package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tournament-engine/config"
	"tournament-engine/handlers"
	"tournament-engine/services"
	"tournament-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	logger := utils.NewLogger(cfg.LogLevel).With("component", "tournament-service")

	var repo services.Repository
	if cfg.DatabaseURL != "" {
		db, err := services.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		gormRepo := services.NewGormRepository(db)
		if err := gormRepo.Migrate(); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		repo = gormRepo
	} else {
		logger.Warn("⚠️  DATABASE_URL not set, tournaments are kept in memory only")
		repo = services.NewMemoryRepository()
	}

	tournamentService := services.NewTournamentService(repo, services.LogPublisher{Logger: logger}, logger)

	app := fiber.New(fiber.Config{
		BodyLimit: 1024 * 1024,
	})

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	handlers.SetupTournamentRoutes(app, tournamentService, []byte(cfg.JWTSecret), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	logger.Info("✅ Server running", "port", cfg.Port)
	logger.Info("✅ CORS configured", "origins", allowedOrigins)

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
