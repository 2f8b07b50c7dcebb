package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusworks/platform-api/internal/api"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
	"github.com/nimbusworks/platform-api/internal/core/service"
	"github.com/nimbusworks/platform-api/internal/infrastructure/config"
	mongodb "github.com/nimbusworks/platform-api/internal/infrastructure/db/mongo"
	redisdb "github.com/nimbusworks/platform-api/internal/infrastructure/db/redis"
	"github.com/nimbusworks/platform-api/internal/infrastructure/memory"
	"github.com/nimbusworks/platform-api/pkg/logger"
)

const auditQueueDepth = 1024

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fallback := logger.Init(logger.Options{Level: "info", Service: "platform-api"})
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "platform-api",
		Env:     cfg.Env,
		Pretty:  !cfg.IsProduction(),
	})

	// A malformed permission matrix must never reach traffic.
	if err := domain.ValidateMatrix(); err != nil {
		log.Fatal().Err(err).Msg("permission matrix validation")
	}

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure mongo indexes")
	}

	// An empty REDIS_ADDR selects the in-process stores: sessions, rate
	// limits and the response cache stay local to this instance. Anything
	// behind a load balancer needs Redis; production refuses to start
	// without it (see config.Load).
	var (
		rdb      *redis.Client
		sessions ports.SessionStore
		limiter  ports.RateLimiter
		cache    ports.Cache
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
		}()
		sessions = redisdb.NewSessionStore(rdb)
		limiter = redisdb.NewRateLimiter(rdb)
		cache = redisdb.NewCache(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR empty, using in-process session store, rate limiter and cache")
		sessions = memory.NewSessionStore()
		limiter = memory.NewRateLimiter()
		memCache := memory.NewCache()
		defer memCache.Close()
		cache = memCache
	}

	recorder := service.NewAuditRecorder(
		mongodb.NewAuditRepository(db),
		[]byte(cfg.AuditSignKey),
		auditQueueDepth,
		logger.Component("audit"),
	)
	recorder.Start()
	defer recorder.Close()

	e := api.NewRouter(api.Deps{
		Mongo:    db,
		Redis:    rdb,
		Sessions: sessions,
		Limiter:  limiter,
		Cache:    cache,
		Config:   cfg,
		Logger:   log,
		Recorder: recorder,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
		os.Exit(1)
	}
}
