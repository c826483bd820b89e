// Command server runs the watchlist screening service.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"watchgate/internal/admin"
	"watchgate/internal/index"
	"watchgate/internal/jwttoken"
	"watchgate/internal/platform/config"
	"watchgate/internal/platform/httpserver"
	"watchgate/internal/platform/logger"
	platformmetrics "watchgate/internal/platform/metrics"
	platformredis "watchgate/internal/platform/redis"
	"watchgate/internal/screening/handler"
	screeningmetrics "watchgate/internal/screening/metrics"
	"watchgate/internal/screening/service"
	httptransport "watchgate/internal/transport/http"
	"watchgate/pkg/platform/audit/kafka"
	"watchgate/pkg/platform/audit/publisher"
	auditmemory "watchgate/pkg/platform/audit/store/memory"
)

// main wires the dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	// Reference index: postgres in production, in-memory for development.
	var backend index.Backend
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		pg := index.NewPostgres(db)
		if err := pg.Migrate(context.Background()); err != nil {
			log.Error("migrate reference index", "error", err)
			os.Exit(1)
		}
		backend = pg
	} else {
		log.Warn("no postgres DSN configured, using the in-memory reference index")
		backend = index.NewMemory()
	}

	var cache *index.RedisCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		cache = index.NewRedisCache(backend, redisClient.Client, cfg.Redis.CacheTTL,
			index.WithCacheLogger(log))
		backend = cache
	}

	// Audit trail: in-memory store of record, kafka fan-out when configured.
	auditOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
	}
	var kafkaSink *kafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		auditOpts = append(auditOpts, publisher.WithSink(kafkaSink))
	}
	trail := publisher.NewPublisher(auditmemory.NewInMemoryStore(), auditOpts...)

	policy := service.DefaultPolicy()
	if cfg.PolicyPath != "" {
		policy, err = service.LoadPolicyFile(cfg.PolicyPath)
		if err != nil {
			log.Error("load policy", "error", err)
			os.Exit(1)
		}
	}

	svc, err := service.New(policy, backend, backend,
		service.WithLogger(log),
		service.WithAuditPublisher(trail),
		service.WithMetrics(screeningmetrics.New()),
	)
	if err != nil {
		log.Error("build screening service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "watchgate", "watchgate-admin")

	var invalidator admin.CacheInvalidator
	if cache != nil {
		invalidator = cache
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Screening: handler.New(svc, log),
		Admin:     admin.New(svc, trail, invalidator, log),
		Auth:      jwttoken.NewServiceAdapter(jwtService),
		Health:    svc,
		Metrics:   platformmetrics.New(),
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting watchgate", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	trail.Close()
	if kafkaSink != nil {
		kafkaSink.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
