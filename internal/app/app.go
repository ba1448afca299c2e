// Package app assembles the backing stores, model client and enrichment
// service from configuration. Redis and Neo4j are optional; a failed
// connection to either is logged and the feature is switched off.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/cache/redis"
	"github.com/ml-career-pulse/backend/internal/enrichment"
	"github.com/ml-career-pulse/backend/internal/kg/builder"
	"github.com/ml-career-pulse/backend/internal/kg/neo4j"
	"github.com/ml-career-pulse/backend/internal/llm"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/internal/storage/sqlite"
	"github.com/ml-career-pulse/backend/pkg/config"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

type App struct {
	Config    *config.Config
	SQLite    *sqlite.Client
	Redis     *redis.Client
	Neo4j     *neo4j.Client
	LLM       *llm.Client
	Extractor *skills.Extractor
	Service   *enrichment.Service
}

func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite client: %w", err)
	}
	if err := sqliteClient.InitSchema(); err != nil {
		sqliteClient.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	a.SQLite = sqliteClient

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, response cache disabled", zap.Error(err))
		} else {
			a.Redis = redisClient
		}
	}

	if cfg.Neo4j.Enabled {
		neo4jClient, err := neo4j.NewClient(cfg.Neo4j)
		if err != nil {
			logger.Warn("Neo4j unavailable, skill graph disabled", zap.Error(err))
		} else if err := neo4jClient.EnsureConstraints(context.Background()); err != nil {
			logger.Warn("Failed to create graph constraints, skill graph disabled", zap.Error(err))
			neo4jClient.Close(context.Background())
		} else {
			a.Neo4j = neo4jClient
		}
	}

	a.LLM = llm.NewClient(cfg.LLM)

	var model skills.Model = a.LLM
	if a.Redis != nil {
		model = llm.NewCachedModel(a.LLM, a.Redis, cfg.LLM.Model, cfg.Redis.TTL())
	}

	a.Extractor = skills.NewExtractor(model, skills.Options{
		ModelName:         cfg.LLM.Model,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		MaxAttempts:       cfg.Extraction.MaxAttempts,
		ShortBackoff:      cfg.Extraction.ShortBackoff(),
		LongBackoff:       cfg.Extraction.LongBackoff(),
	})

	if !a.Extractor.Configured() {
		logger.Warn("LLM API key not set, detailed extraction returns empty results")
	}

	var graph enrichment.GraphBuilder
	if a.Neo4j != nil {
		graph = builder.NewBuilder(a.Neo4j)
	}
	var counters enrichment.Counter
	if a.Redis != nil {
		counters = a.Redis
	}
	a.Service = enrichment.NewService(a.Extractor, a.SQLite, graph, counters)

	return a, nil
}

func (a *App) Close() {
	if a.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Neo4j.Close(ctx); err != nil {
			logger.Warn("Failed to close Neo4j client", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			logger.Warn("Failed to close SQLite client", zap.Error(err))
		}
	}
}
