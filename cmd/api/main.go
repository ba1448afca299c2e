package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/api/handlers"
	"github.com/ml-career-pulse/backend/internal/app"
	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/pkg/config"
	appLogger "github.com/ml-career-pulse/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting ML Career Pulse API Server")

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	a, err := app.New(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	deps := map[string]handlers.Pinger{"sqlite": a.SQLite}
	var counters handlers.MetricReader
	var graph handlers.GraphReader
	if a.Redis != nil {
		deps["redis"] = a.Redis
		counters = a.Redis
	}
	if a.Neo4j != nil {
		deps["neo4j"] = a.Neo4j
		graph = a.Neo4j
	}

	routes := handlers.Routes{
		Health: handlers.NewHealthHandler(deps, handlers.ExtractorInfo{
			Configured:      a.Extractor.Configured(),
			Model:           a.Extractor.ModelName(),
			RequestDelaySec: a.Extractor.RequestDelay().Seconds(),
			Breaker:         func() string { return a.LLM.BreakerState().String() },
		}),
		Extraction: handlers.NewExtractionHandler(a.Service),
		Skills:     handlers.NewSkillsHandler(a.SQLite, counters, graph),
	}

	server := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	server.Use(recover.New())

	routes.Register(server.Group("/api/v1"))

	if cfg.Metrics.Enabled {
		server.Get("/metrics", metrics.MetricsHandler())
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
