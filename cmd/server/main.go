package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	appintegration "github.com/hull-connectors/planhat/internal/application/integration"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/infrastructure/auth"
	"github.com/hull-connectors/planhat/internal/infrastructure/cache"
	"github.com/hull-connectors/planhat/internal/infrastructure/config"
	"github.com/hull-connectors/planhat/internal/infrastructure/hull"
	"github.com/hull-connectors/planhat/internal/infrastructure/logger"
	"github.com/hull-connectors/planhat/internal/infrastructure/persistence"
	"github.com/hull-connectors/planhat/internal/infrastructure/planhat"
	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
	"github.com/hull-connectors/planhat/internal/interfaces/http/handler"
	"github.com/hull-connectors/planhat/internal/interfaces/http/middleware"
	"github.com/hull-connectors/planhat/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logs export needs a bootstrap logger for its own diagnostics, so the
	// process logger is built once the provider exists.
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}

	var extraCores []zapcore.Core
	if logsProvider.IsEnabled() {
		extraCores = append(extraCores, logsProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(logCfg, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Planhat connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// ---------------------------------------------------------------------------
	// Telemetry
	// ---------------------------------------------------------------------------

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:            cfg.Profiling.Enabled,
		ServerAddress:      cfg.Profiling.ServerAddress,
		ApplicationName:    cfg.Profiling.ApplicationName,
		BasicAuthUser:      cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:  cfg.Profiling.BasicAuthPassword,
		ProfileAllocations: cfg.Profiling.ProfileAllocations,
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable, continuing without it", zap.Error(err))
	}
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}

	var meter metric.Meter
	var syncMetrics *telemetry.SyncMetrics
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
		syncMetrics, err = telemetry.NewSyncMetrics(meter, log)
		if err != nil {
			log.Warn("Sync metrics unavailable", zap.Error(err))
			syncMetrics = nil
		}
	}

	// ---------------------------------------------------------------------------
	// Journal and deduplication
	// ---------------------------------------------------------------------------

	checks := map[string]handler.Pinger{}
	serviceOpts := []appintegration.NotificationServiceOption{
		appintegration.WithSyncMetrics(syncMetrics),
	}

	var records integration.SyncRecordRepository
	var db *persistence.Database
	if cfg.Database.Enabled {
		db, err = persistence.NewDatabase(&cfg.Database, log, persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			DBName:          cfg.Database.DBName,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}))
		if err != nil {
			log.Fatal("Failed to connect to journal database", zap.Error(err))
		}
		if cfg.Database.Driver == "sqlite" {
			if err := db.AutoMigrate(); err != nil {
				log.Fatal("Failed to create journal schema", zap.Error(err))
			}
		}
		repo := persistence.NewSyncRecordRepository(db.DB)
		records = repo
		serviceOpts = append(serviceOpts, appintegration.WithJournal(repo))
		checks["database"] = db
		log.Info("Sync journal enabled", zap.String("driver", cfg.Database.Driver))
	}

	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create deduplication store", zap.Error(err))
	}
	if pinger, ok := store.(handler.Pinger); ok {
		checks["redis"] = pinger
	}
	serviceOpts = append(serviceOpts, appintegration.WithIdempotency(store, cfg.Redis.IdempotencyTTL))

	// ---------------------------------------------------------------------------
	// Clients and services
	// ---------------------------------------------------------------------------

	planhatFactory, err := planhat.NewFactory(planhat.ClientConfig{
		BaseURLTemplate: cfg.Planhat.BaseURLTemplate,
		AnalyticsURL:    cfg.Planhat.AnalyticsURL,
		Timeout:         cfg.Planhat.Timeout,
		RateLimit:       cfg.Planhat.RateLimit,
		RateBurst:       cfg.Planhat.RateBurst,
	}, log, planhat.WithMetrics(syncMetrics))
	if err != nil {
		log.Fatal("Invalid Planhat client configuration", zap.Error(err))
	}

	hullFactory := hull.NewFactory(hull.FactoryConfig{
		Organization: cfg.Hull.Organization,
		Secret:       cfg.Hull.Secret,
		Timeout:      cfg.Hull.FirehoseTimeout,
	}, log)

	notificationService := appintegration.NewNotificationService(planhatFactory, hullFactory, log, serviceOpts...)
	statusService := appintegration.NewStatusService(records, log)

	schemas, err := dto.NewSchemaValidator()
	if err != nil {
		log.Fatal("Failed to compile request schemas", zap.Error(err))
	}

	defaults := handler.ConnectorDefaults{
		Organization: cfg.Hull.Organization,
		Secret:       cfg.Hull.Secret,
	}
	notificationHandler := handler.NewNotificationHandler(notificationService, schemas, defaults)
	statusHandler := handler.NewStatusHandler(statusService, schemas, defaults)
	healthHandler := handler.NewHealthHandler(cfg.App.Name, version, checks)

	// ---------------------------------------------------------------------------
	// HTTP
	// ---------------------------------------------------------------------------

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = tracerProvider.IsEnabled()
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}

	// Order matters: the request id must exist before logging and tracing,
	// and the body limit must wrap the body before any handler reads it.
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	hullToken := middleware.HullToken(middleware.HullTokenConfig{
		Verifier: auth.NewTokenVerifier(cfg.Hull.Secret),
		Required: cfg.Hull.RequireToken,
		Logger:   log,
	})

	r := router.NewRouter(engine)
	r.Register(router.HealthRoutes(healthHandler))
	r.Register(router.ConnectorRoutes(notificationHandler, statusHandler, hullToken, middleware.SpanAttributes()))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		exitCode = 1
	}

	// Release resources in reverse order of acquisition.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := store.Close(); err != nil {
		log.Error("Error closing deduplication store", zap.Error(err))
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Error closing journal database", zap.Error(err))
		}
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	_ = log.Sync()
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Error("Error shutting down log export", zap.Error(err))
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
