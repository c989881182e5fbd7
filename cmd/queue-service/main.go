package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinik/antrian/internal/cache"
	"klinik/antrian/internal/config"
	"klinik/antrian/internal/httpapi"
	"klinik/antrian/internal/hub"
	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/queue"
	"klinik/antrian/internal/store"
	"klinik/antrian/internal/store/memory"
	"klinik/antrian/internal/store/postgres"
	"klinik/antrian/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "queue-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init(serviceName, cfg.Env, cfg.LogLevel)

	shutdownTelemetry := telemetry.Setup(context.Background(), serviceName, cfg.OTLPEndpoint)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var queueStore store.QueueStore
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DB_DSN not set, using in-memory store")
		queueStore = memory.NewStore()
	} else {
		if cfg.AutoMigrate {
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("migrate")
			}
		}
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer pool.Close()
		queueStore = postgres.NewStore(pool)
	}

	service := queue.NewService(queueStore, queue.Options{
		Location:      cfg.Location(),
		RecallLogSize: cfg.RecallLogSize,
	})

	events := hub.New()
	service.Subscribe(events.Publish)

	options := httpapi.Options{Realtime: httpapi.NewRealtimeHandler(events)}
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect")
		}
		defer client.Close()
		snapshots := cache.NewRedisCache(client, cfg.DisplayCacheTTL)
		service.Subscribe(cache.Invalidator(snapshots))
		options.Cache = snapshots
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, operator routes are unauthenticated")
	}

	handler := httpapi.NewHandler(service, options)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})
	routes := httpapi.AuthMiddleware([]byte(cfg.JWTSecret), handler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(routes)), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("queue-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
