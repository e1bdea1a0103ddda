package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advertisement-service/internal/auth"
	"advertisement-service/internal/config"
	"advertisement-service/internal/delivery/render"
	"advertisement-service/internal/delivery/router"
	"advertisement-service/internal/infrastructure/cache"
	"advertisement-service/internal/infrastructure/events"
	"advertisement-service/internal/infrastructure/metrics"
	"advertisement-service/internal/repository"
	"advertisement-service/internal/service"
	"advertisement-service/pkg/database"
	"advertisement-service/pkg/logger"
	"advertisement-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	redisClient "github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	cfg := config.MustLoadConfig()

	loggers, cleanupLogger := setupLogger(cfg)
	defer cleanupLogger()
	loggers.InfoLogger.Info("Logger initialized")

	db, cleanupDB := setupDatabase(cfg, loggers)
	defer cleanupDB()

	advertisementCache, cleanupRedis := setupRedis(cfg, loggers)
	defer cleanupRedis()

	tracerProvider := setupTracer(cfg, loggers)
	defer shutdownTracer(tracerProvider, loggers)

	registry := metrics.NewRegistry()
	handlerMetrics := metrics.NewHandlerMetrics(registry)
	serviceMetrics := metrics.NewServiceMetrics(registry)
	repositoryMetrics := metrics.NewRepositoryMetrics(registry)
	loggers.InfoLogger.Info("Prometheus metrics initialized")

	publisher := setupPublisher(cfg, loggers)
	defer func() {
		if err := publisher.Close(); err != nil {
			loggers.ErrorLogger.Error("Failed to close event publisher", utils.Err(err))
		}
	}()

	renderer, err := render.New()
	if err != nil {
		loggers.ErrorLogger.Error("Failed to parse templates", utils.Err(err))
		os.Exit(1)
	}

	advertisementRepo := repository.NewMysqlAdvertisementRepository(db, advertisementCache, cfg.Redis.TTL, repositoryMetrics)
	paginator := service.NewPaginator(cfg.Pagination.PageSize, cfg.Pagination.MaxPageSize)
	advertisementService := service.NewAdvertisementService(advertisementRepo, paginator, publisher, loggers, serviceMetrics)
	loggers.InfoLogger.Info("Service and repository layers initialized")

	r := chi.NewRouter()
	router.SetupMiddleware(r, loggers, cfg.CORS)
	router.SetupAdvertisementRoutes(r, advertisementService, renderer, setupAuth(cfg, loggers), loggers, handlerMetrics)
	loggers.InfoLogger.Info("Router and routes initialized")

	r.Handle("/metrics", handlerMetrics.HTTPHandler())

	server := startServer(cfg, r, loggers)

	waitForShutdown(server, loggers)
}

func setupLogger(cfg *config.Config) (*logger.Loggers, func()) {
	var sinks []slog.Handler
	cleanup := func() {}

	if cfg.Logger.Fluent.Enabled {
		client, err := logger.NewFluentClient(logger.FluentConfig{
			Host: cfg.Logger.Fluent.Host,
			Port: cfg.Logger.Fluent.Port,
			Tag:  cfg.Logger.Fluent.Tag,
		})
		if err != nil {
			log.Fatalf("Failed to set up fluent logger: %v", err)
		}

		level, err := logger.ParseLevel(cfg.Logger.Fluent.Level)
		if err != nil {
			log.Fatalf("Failed to set up fluent logger: %v", err)
		}

		sinks = append(sinks, logger.NewFluentHandler(client, "app", level))
		cleanup = func() { client.Close() }
	}

	loggers, err := logger.SetupLogger(cfg.Logger.Level, sinks...)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	return loggers, cleanup
}

func setupDatabase(cfg *config.Config, loggers *logger.Loggers) (*sql.DB, func()) {
	dsn := database.Options{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	}.DSN()

	db, err := database.NewDatabase(dsn)
	if err != nil {
		loggers.ErrorLogger.Error("Failed to connect to database", utils.Err(err))
		os.Exit(1)
	}
	loggers.InfoLogger.Info("Connected to database")

	if cfg.Database.Migrate {
		if err := repository.Migrate(db); err != nil {
			loggers.ErrorLogger.Error("Failed to apply migrations", utils.Err(err))
			os.Exit(1)
		}
		loggers.InfoLogger.Info("Database migrations applied")
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			loggers.ErrorLogger.Error("Failed to close database connection", utils.Err(err))
		}
	}

	return db, cleanup
}

// setupRedis falls back to an in-process cache when no Redis address is configured.
func setupRedis(cfg *config.Config, loggers *logger.Loggers) (cache.Cache, func()) {
	if cfg.Redis.Addr == "" {
		loggers.InfoLogger.Info("Redis address not set, using in-memory cache")
		return cache.NewMemoryCache(), func() {}
	}

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		loggers.ErrorLogger.Error("Failed to connect to Redis", utils.Err(err))
		os.Exit(1)
	}
	loggers.InfoLogger.Info("Connected to Redis")

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			loggers.ErrorLogger.Error("Failed to close Redis client", utils.Err(err))
		}
	}

	return cache.NewRedisCache(rdb), cleanup
}

func setupTracer(cfg *config.Config, loggers *logger.Loggers) *sdktrace.TracerProvider {
	if !cfg.Tracing.Enabled {
		return nil
	}

	tracerProvider, err := metrics.InitTracer(metrics.TracerOptions{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Version:     cfg.Tracing.Version,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		loggers.ErrorLogger.Error("Failed to initialize tracer", utils.Err(err))
		os.Exit(1)
	}
	loggers.InfoLogger.Info("OpenTelemetry Tracer initialized")
	return tracerProvider
}

func shutdownTracer(tp *sdktrace.TracerProvider, loggers *logger.Loggers) {
	if tp == nil {
		return
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		loggers.ErrorLogger.Error("Failed to shut down tracer provider", utils.Err(err))
	}
}

func setupPublisher(cfg *config.Config, loggers *logger.Loggers) events.Publisher {
	if !cfg.Events.Enabled {
		return events.NoopPublisher{}
	}

	publisher, err := events.NewRabbitPublisher(cfg.Events.URL, cfg.Events.Exchange)
	if err != nil {
		loggers.ErrorLogger.Error("Failed to connect to RabbitMQ", utils.Err(err))
		os.Exit(1)
	}
	loggers.InfoLogger.Info("Connected to RabbitMQ", "exchange", cfg.Events.Exchange)
	return publisher
}

func setupAuth(cfg *config.Config, loggers *logger.Loggers) auth.Checker {
	if !cfg.Auth.Enabled {
		loggers.InfoLogger.Info("Authorization disabled, all capabilities granted")
		return auth.AllowAll{}
	}
	return auth.NewJWTChecker(cfg.Auth.JWTSecret, cfg.Auth.Capabilities)
}

func startServer(cfg *config.Config, handler http.Handler, loggers *logger.Loggers) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
	}

	go func() {
		loggers.InfoLogger.Info("Starting server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggers.ErrorLogger.Error("Failed to start server", utils.Err(err))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(server *http.Server, loggers *logger.Loggers) {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	<-shutdownCh
	loggers.InfoLogger.Info("Shutdown signal received, shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		loggers.ErrorLogger.Error("Server forced to shutdown", utils.Err(err))
	} else {
		loggers.InfoLogger.Info("Server shutdown gracefully")
	}
}
