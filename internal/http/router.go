// Package httpapi wires the HTTP transport (Gin) to the marketplace
// handlers and middleware. It centralizes cross-cutting concerns such as
// tracing, correlation IDs, authentication, logging/redaction, panic
// recovery, compression, metrics, CORS, security headers, idempotency and
// rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → auth → logging → recovery)
//   - Deterministic router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/nabostylisten-backend/internal/auth"
	"github.com/tbourn/nabostylisten-backend/internal/config"
	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/http/handlers"
	"github.com/tbourn/nabostylisten-backend/internal/http/middleware"
)

var (
	allowMethods  = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	allowHeaders  = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Role", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders = []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag", "Idempotency-Replayed"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Authenticate: resolve the caller (anonymous passes through)
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Gzip and body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Identity. Bearer tokens need a secret; dev headers are opt-in.
	authn := auth.Middleware{DevHeaders: cfg.Auth.DevHeaders}
	if cfg.Auth.JWTSecret != "" {
		authn.Tokens = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	r.Use(authn.Authenticate())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-User-ID", "X-User-Role"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Compression and a global body size limit (1 MiB)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics(middleware.MetricsOptions{SkipPaths: []string{"/metrics"}}))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, Scope: handlers.IdempotencyScope},
		handlers.IdempotencyLookup(h.DB),
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					hd := c.Writer.Header()
					hd.Set("Access-Control-Allow-Origin", origin)
					hd.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	base := apiBase
	if base == "/" {
		base = ""
	}

	// Security headers. Personal and financial responses are never cached.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{
			base + "/admin", base + "/me", base + "/bookings", base + "/affiliate",
		},
		Expose:       []string{"ETag", "Idempotency-Replayed"},
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// POSTs that reach the payment provider get a tighter bucket.
	writes := middleware.NewRateLimiter(cfg.WriteRateRPS, cfg.WriteRateBurst, middleware.KeyByUserOrIP()).
		ForMethods(http.MethodPost).
		Handler()

	api := groupWithPrefix(r, apiBase)
	{
		// Catalog (public reads)
		api.GET("/services", h.SearchServices)
		api.GET("/services/:id", h.GetService)
		api.GET("/stylists/:id/reviews", h.ListStylistReviews)
		api.GET("/affiliate/click/:code", h.TrackAffiliateClick)
	}

	user := api.Group("", auth.Required())
	{
		// Stylist catalog management
		user.POST("/services", h.CreateService)
		user.PUT("/services/:id", h.UpdateService)
		user.PUT("/services/:id/published", h.SetServicePublished)

		// Profile
		user.GET("/me/profile", h.GetMyProfile)
		user.PUT("/me/profile", h.PutMyProfile)
		user.POST("/me/addresses", h.AddMyAddress)

		// Bookings
		user.POST("/bookings", writes, h.CreateBooking)
		user.GET("/bookings", h.ListBookings)
		user.GET("/bookings/:id", h.GetBooking)
		user.POST("/bookings/:id/confirm", h.ConfirmBooking)
		user.POST("/bookings/:id/decline", h.DeclineBooking)
		user.POST("/bookings/:id/cancel", writes, h.CancelBooking)
		user.POST("/bookings/:id/complete", h.CompleteBooking)

		// Chat
		user.GET("/bookings/:id/messages", h.ListMessages)
		user.POST("/bookings/:id/messages", h.PostMessage)
		user.POST("/bookings/:id/messages/read", h.MarkMessagesRead)

		// Reviews
		user.POST("/bookings/:id/review", h.CreateReview)

		// Affiliate and discounts
		user.POST("/affiliate/link", h.CreateAffiliateLink)
		user.GET("/affiliate/link", h.GetAffiliateLink)
		user.GET("/affiliate/commissions", h.ListAffiliateCommissions)
		user.GET("/discounts/:code/validate", h.ValidateDiscount)
	}

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/payments", h.ListPayments)
		admin.GET("/payments/export.csv", h.ExportPaymentsCSV)
		admin.GET("/payments/export.xlsx", h.ExportPaymentsXLSX)
		admin.GET("/payments/:id", h.GetPayment)
		admin.POST("/payments/:id/refunds", writes, h.RefundPayment)
		admin.POST("/discounts", h.CreateDiscount)
		admin.POST("/affiliate/commissions/:id/paid", h.MarkCommissionPaid)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
