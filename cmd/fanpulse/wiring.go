package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fanpulse/fanpulse/internal/application"
	"github.com/fanpulse/fanpulse/internal/infrastructure/cache"
	"github.com/fanpulse/fanpulse/internal/infrastructure/db"
	"github.com/fanpulse/fanpulse/internal/infrastructure/source"
	"github.com/fanpulse/fanpulse/internal/metrics"
)

// services bundles everything a command needs after wiring.
type services struct {
	config   *application.Config
	manager  *db.Manager
	breaker  *source.BreakerSource
	cache    *cache.LatestCache
	registry *metrics.Registry
	scoring  *application.ScoringService
	batch    *application.BatchRunner
}

// buildServices wires the database, cache, breaker, and scoring pipeline from
// the config file.
func buildServices(configPath string) (*services, error) {
	config, err := application.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	manager, err := db.NewManager(config.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	repos := manager.Repository()
	breaker := source.NewBreakerSource(repos.Metrics, config.Breaker)

	var latestCache *cache.LatestCache
	if config.Cache.Addr != "" {
		latestCache = cache.New(config.Cache)
	}

	registry := metrics.Default()

	scoringService, err := application.NewScoringService(breaker, repos, latestCache, registry, config.Scoring)
	if err != nil {
		manager.Close()
		return nil, err
	}

	return &services{
		config:   config,
		manager:  manager,
		breaker:  breaker,
		cache:    latestCache,
		registry: registry,
		scoring:  scoringService,
		batch:    application.NewBatchRunner(scoringService, repos.Metrics, registry, config.Batch),
	}, nil
}

// Close releases the database pool.
func (s *services) Close() {
	if err := s.manager.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database failed")
	}
}
