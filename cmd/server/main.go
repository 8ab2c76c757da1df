package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/api"
	"github.com/stitts-dev/roster-optimizer/internal/ingest"
	"github.com/stitts-dev/roster-optimizer/internal/optimizer"
	"github.com/stitts-dev/roster-optimizer/internal/repository"
	"github.com/stitts-dev/roster-optimizer/internal/services"
	"github.com/stitts-dev/roster-optimizer/pkg/cache"
	"github.com/stitts-dev/roster-optimizer/pkg/config"
	"github.com/stitts-dev/roster-optimizer/pkg/database"
	"github.com/stitts-dev/roster-optimizer/pkg/logger"
)

const serviceName = "roster-optimizer"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService(serviceName)
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"data_source": cfg.DataSource,
		"backend":     cfg.SolverBackend,
	}).Info("Starting roster optimizer")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := api.Dependencies{
		Config: cfg,
		Logger: structuredLogger,
	}

	var source services.PoolSource
	switch cfg.DataSource {
	case config.SourceDatabase:
		db, err := database.NewConnection(cfg, structuredLogger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		repo := repository.NewPlayerRepository(db.DB)
		if err := repo.Migrate(); err != nil {
			log.Fatalf("Failed to migrate players table: %v", err)
		}
		source = repo
		deps.DB = db
	default:
		source = &ingest.CSVSource{
			StatsPath:    cfg.StatsCSV,
			SalariesPath: cfg.SalariesCSV,
			SalaryColumn: cfg.SalaryColumn,
			Logger:       structuredLogger,
		}
	}

	// Redis is optional; without it every restart rescores from the source.
	var poolCache services.PoolCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		defer redisClient.Close()

		cacheService := cache.NewPoolCacheService(redisClient, structuredLogger)
		if err := cacheService.Ping(context.Background()); err != nil {
			log.WithError(err).Warn("Redis unreachable, continuing without pool cache")
		}
		poolCache = cache.NewBreakerPoolCache(cacheService, cfg.CacheBreakerThreshold, cfg.CacheBreakerTimeout, structuredLogger)
		deps.Cache = cacheService
	}

	solver := optimizer.NewSolver(
		optimizer.DefaultRegistry(),
		cfg.SolverBackend,
		optimizer.BackendConfig{MaxNodes: cfg.SolverMaxNodes, Logger: structuredLogger},
		structuredLogger,
	)
	deps.Service = services.NewRosterService(source, poolCache, cfg.PoolCacheTTL, solver, structuredLogger)

	// Warm the pool so the first request does not pay for ingestion.
	if _, err := deps.Service.ScoredPool(context.Background()); err != nil {
		log.WithError(err).Warn("Initial player pool load failed, will retry on first request")
	}

	if cfg.PoolReloadSchedule != "" {
		scheduler := services.NewReloadScheduler(deps.Service, structuredLogger)
		if err := scheduler.Start(cfg.PoolReloadSchedule); err != nil {
			log.Fatalf("Failed to start reload scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Roster optimizer started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down roster optimizer...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Roster optimizer forced to shutdown: %v", err)
	}

	log.Info("Roster optimizer exited")
}
