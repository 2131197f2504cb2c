package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/exprgate/exprgate/internal/handler"
	"github.com/exprgate/exprgate/internal/metrics"
	"github.com/exprgate/exprgate/internal/middleware"
)

// apiPrefix is the mount point of the gateway routes.
const apiPrefix = "/summarization_gene_expression"

// multipartMemory is the in-memory share of a parsed upload; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// handlers groups the route handlers.
type handlers struct {
	root       *handler.Handler
	health     *handler.HealthHandler
	metrics    http.Handler
	accounts   *handler.AccountHandler
	expression *handler.ExpressionHandler
	jobs       *handler.JobHandler
	ingest     *handler.IngestHandler
	files      *handler.FilesHandler
	svg        *handler.SVGHandler
}

// routerConfig carries the middleware settings.
type routerConfig struct {
	Logger            *slog.Logger
	Metrics           metrics.Recorder
	Quota             middleware.QuotaStore
	Limiter           middleware.ClientLimiter
	GlobalLimiter     *rate.Limiter
	TrustProxyHeaders bool
	IsDevelopment     bool
	RateLimitEnabled  bool
	UploadsPerMinute  int
	CORSOrigins       []string
	MaxBodySize       int64
	MaxUploadSize     int64
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h handlers, cfg routerConfig) *chi.Mux {
	r := chi.NewRouter()

	// PeerAddr must see RemoteAddr before RealIP rewrites it.
	r.Use(middleware.PeerAddr)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.GlobalLimit(cfg.GlobalLimiter, cfg.Metrics))

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	quota := middleware.Quota(middleware.QuotaConfig{
		Logger:  cfg.Logger,
		Store:   cfg.Quota,
		Metrics: cfg.Metrics,
	})
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    cfg.Logger,
		Limiter:   cfg.Limiter,
		Metrics:   cfg.Metrics,
		Enabled:   cfg.RateLimitEnabled,
		PerMinute: cfg.UploadsPerMinute,
		Burst:     1,
	}
	limited := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimitClient(rateLimitCfg, scope)
	}
	loopback := middleware.LoopbackOnly(cfg.Logger)
	jsonBody := middleware.MaxBodySize(cfg.MaxBodySize)
	uploadBody := middleware.MaxBodySize(cfg.MaxUploadSize)
	requireFile := middleware.RequireFile(multipartMemory)
	validParams := middleware.ValidateExpressionParams

	r.Route(apiPrefix, func(r chi.Router) {
		// Jobs
		r.With(limited("summarize"), jsonBody, quota).Post("/summarize", h.jobs.Summarize)
		r.Get("/progress/{job_id}", h.jobs.Progress)
		r.With(limited("tsv_upload"), uploadBody, requireFile, quota).Post("/tsv_upload", h.jobs.TSVUpload)

		// Ingestion
		r.With(limited("csv_upload"), uploadBody, requireFile, quota).Post("/csv_upload", h.ingest.CSVUpload)
		r.With(loopback, jsonBody, quota).Post("/insert", h.ingest.Insert)

		// Expression queries
		r.With(validParams, quota).Get("/value/{table_id}/{gene}", h.expression.Value)
		r.With(validParams, quota).Get("/value/{table_id}/{gene}/{sample}", h.expression.Value)
		r.Get("/samples/{table_id}", h.expression.Samples)
		r.With(validParams, quota).Get("/genes/{table_id}", h.expression.Genes)
		r.Get("/find_gene/{table_id}/{substring}", h.expression.FindGene)
		r.Get("/table_exists/{table_id}", h.expression.TableExists)
		r.With(loopback).Get("/drop_table/{table_id}", h.expression.DropTable)

		// Accounts and stored files
		r.With(middleware.RequireAPIKey).Get("/user", h.accounts.User)
		r.With(uploadBody, requireFile, quota).Post("/save", h.files.Save)
		r.With(middleware.RequireAPIKey).Post("/get_file_list", h.files.List)
		r.With(middleware.RequireAPIKey).Get("/get_file/{file_id}", h.files.Get)
		r.With(jsonBody, quota).Post("/clean_svg", h.svg.Clean)
	})

	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}
