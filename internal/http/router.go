// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, error
// reporting, metrics, CORS, security headers, authentication, idempotency,
// rate limiting and compression.
//
// Design goals:
//   - Put observability first (OTel + Prometheus + Sentry)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-job-tracker/docs" // registers the OpenAPI document
	"github.com/tbourn/go-job-tracker/internal/config"
	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/http/handlers"
	"github.com/tbourn/go-job-tracker/internal/http/middleware"
	"github.com/tbourn/go-job-tracker/internal/repo"
	"github.com/tbourn/go-job-tracker/internal/services"
)

// noteRepoShim adapts the repository free functions to the services.NoteRepo
// interface expected by the NoteService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type noteRepoShim struct{}

// CreateNote proxies repo.CreateNote.
func (noteRepoShim) CreateNote(ctx context.Context, db *gorm.DB, n *domain.Note) (*domain.Note, error) {
	return repo.CreateNote(ctx, db, n)
}

// ListNotes proxies repo.ListNotes.
func (noteRepoShim) ListNotes(ctx context.Context, db *gorm.DB, applicationID uint) ([]domain.Note, error) {
	return repo.ListNotes(ctx, db, applicationID)
}

// DeleteNote proxies repo.DeleteNote.
func (noteRepoShim) DeleteNote(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteNote(ctx, db, id)
}

// GetApplication proxies repo.GetApplication.
func (noteRepoShim) GetApplication(ctx context.Context, db *gorm.DB, id uint) (*domain.Application, error) {
	return repo.GetApplication(ctx, db, id)
}

// maxBodyBytes caps request bodies for every endpoint.
const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Location", middleware.HeaderIdempotentReplayed}
)

// NewServices builds the service graph over db. The returned AuthService is
// also the token verifier of the Auth middleware.
func NewServices(db *gorm.DB, cfg config.Config) (handlers.Services, *services.AuthService) {
	apps := services.NewApplicationService(db, cfg.IdempotencyTTL)
	auth := services.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	return handlers.Services{
		Apps:   apps,
		Notes:  services.NewNoteService(db, noteRepoShim{}),
		Stats:  &services.StatsService{Apps: apps},
		Search: &services.SearchService{DB: db},
		Export: &services.ExportService{Apps: apps},
		Auth:   auth,
	}, auth
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics, error reporting),
// CORS and security headers, authentication, idempotency and rate limiting,
// health and metrics endpoints, and then mounts the API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Sentry: report panics and handler errors (when a DSN is configured)
//  6. Body size limiter
//  7. Metrics
//  8. CORS and Security headers (before auth so preflights pass)
//  9. Auth, then the Sentry user scope
//  10. Idempotency validator (before rate limiter to allow bypass on replay)
//  11. Rate limiter (per user/IP, bypass on replay; stricter per-IP policy on register/login)
//  12. gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Error reporting
	r.Use(middleware.Sentry(cfg.Sentry.Enabled()))

	// 6) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	svcs, auth := NewServices(db, cfg)
	apiBase := cfg.APIBasePath

	// 9) Bearer tokens; anonymous access unless AUTH_REQUIRED
	r.Use(middleware.Auth(middleware.AuthOptions{
		Verify:   auth.Verify,
		Required: cfg.Auth.Required,
		Public:   publicPaths(apiBase),
	}))
	r.Use(middleware.SentryScope())

	// 10) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return rec != nil, nil
		},
	))

	// 11) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(middleware.RatePolicy{
		Name:  "api",
		RPS:   cfg.RateRPS,
		Burst: cfg.RateBurst,
		Key:   middleware.KeyByUserOrIP(),
	})
	r.Use(rl.Handler())
	// Credential endpoints get a much smaller per-IP budget on top.
	authLimit := middleware.NewRateLimiter(middleware.RatePolicy{
		Name:  "auth",
		RPS:   cfg.AuthRateRPS,
		Burst: cfg.AuthRateBurst,
		Key:   middleware.KeyByIP(),
	}).Handler()

	// 12) Compress JSON and CSV bodies for clients that accept gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", healthHandler(db))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svcs)

	api := groupWithPrefix(r, apiBase)
	{
		// Applications
		api.GET("/applications", h.ListApplications)
		api.POST("/applications", h.CreateApplication)
		api.GET("/applications/search", h.SearchApplications)
		api.GET("/applications/export", h.ExportApplications)
		api.GET("/applications/:id", h.GetApplication)
		api.PATCH("/applications/:id", h.UpdateApplication)
		api.DELETE("/applications/:id", h.DeleteApplication)

		// Notes and history
		api.GET("/notes", h.ListNotes)
		api.POST("/notes", h.CreateNote)
		api.DELETE("/notes/:id", h.DeleteNote)
		api.GET("/status-history", h.ListStatusHistory)

		// Dashboard
		api.GET("/stats", h.GetStats)
		api.GET("/stats/trend", h.GetTrend)
		api.GET("/stats/monthly", h.GetMonthly)

		// Accounts
		api.POST("/auth/register", authLimit, h.Register)
		api.POST("/auth/login", authLimit, h.Login)
		api.GET("/auth/me", h.Me)
	}
}

// publicPaths lists the prefixes reachable without a token when
// authentication is required.
func publicPaths(apiBase string) []string {
	base := apiBase
	if base == "/" {
		base = ""
	}
	return []string{
		"/health",
		"/metrics",
		"/swagger",
		base + "/auth/register",
		base + "/auth/login",
	}
}

// corsMiddleware returns the CORS chain. Without an allowlist every origin is
// accepted (credentials stay disabled); otherwise allowed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    corsExpose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// healthHandler reports liveness and whether the database answers a ping.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("health: database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
