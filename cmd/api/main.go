// Package main is the entrypoint for the exprgate API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/exprgate/exprgate/internal/cache"
	"github.com/exprgate/exprgate/internal/config"
	"github.com/exprgate/exprgate/internal/drive"
	"github.com/exprgate/exprgate/internal/files"
	"github.com/exprgate/exprgate/internal/handler"
	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/repository"
	"github.com/exprgate/exprgate/internal/secret"
	"github.com/exprgate/exprgate/internal/server"
	"github.com/exprgate/exprgate/internal/service"
	"github.com/exprgate/exprgate/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	catalog := workflow.DefaultCatalog()
	if cfg.WorkflowCatalogFile != "" {
		catalog, err = workflow.LoadCatalog(cfg.WorkflowCatalogFile)
		if err != nil {
			logger.Error("failed to load workflow catalogue", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var lister service.FolderLister
	if cfg.DriveListingEnabled() {
		credential, err := secret.OpenFile(cfg.DriveListKey, cfg.DriveListFile)
		if err != nil {
			logger.Error("failed to open drive credential", slog.String("error", err.Error()))
			os.Exit(1)
		}
		lister = drive.NewLister(cfg.DriveAPIURL, credential, &http.Client{Timeout: 15 * time.Second})
		logger.Info("drive listing enabled", slog.String("credential", credential.String()))
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewPrometheus(reg)
		metricsHandler = handler.NewMetricsHandler(reg)
	}

	engine := workflow.NewClient(cfg.EngineURL, cfg.WorkflowDir, nil)
	expressionService := service.NewExpressionService(repo, logger, recorder)
	ingestService := service.NewIngestService(repo, logger, recorder)
	jobService := service.NewJobService(engine, lister, catalog, logger, recorder)

	uploads := files.New(cfg.UploadDir)
	documents := files.New(cfg.DataDir)

	h := handlers{
		root:       handler.New(),
		health:     handler.NewHealthHandler(repo, cacheClient),
		metrics:    metricsHandler,
		accounts:   handler.NewAccountHandler(repo, logger),
		expression: handler.NewExpressionHandler(expressionService, logger),
		jobs:       handler.NewJobHandler(jobService, uploads, logger),
		ingest:     handler.NewIngestHandler(ingestService, uploads, logger),
		files:      handler.NewFilesHandler(documents, logger),
		svg:        handler.NewSVGHandler(logger),
	}

	var globalLimiter *rate.Limiter
	if cfg.RateLimitEnabled && cfg.RateLimitGlobalRPS > 0 {
		globalLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimitGlobalRPS), int(cfg.RateLimitGlobalRPS))
	}

	r := setupRouter(h, routerConfig{
		Logger:            logger,
		Metrics:           recorder,
		Quota:             repo,
		Limiter:           cacheClient,
		GlobalLimiter:     globalLimiter,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		IsDevelopment:     cfg.IsDevelopment(),
		RateLimitEnabled:  cfg.RateLimitEnabled,
		UploadsPerMinute:  cfg.RateLimitUploadsPerMinute,
		CORSOrigins:       cfg.GetCORSAllowedOrigins(),
		MaxBodySize:       cfg.MaxRequestBodySize,
		MaxUploadSize:     cfg.MaxUploadSize,
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.String("engine_url", redactURL(cfg.EngineURL)),
		slog.Bool("metrics", cfg.MetricsEnabled),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
