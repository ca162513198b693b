// Package httpapi exposes the attendance services over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"rollbook/internal/auth"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/observability"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) bool

// Deps is everything the router needs.
type Deps struct {
	Accounts   Accounts
	Rosters    Rosters
	Attendance Attendance
	Uploads    Uploads

	// Issuer verifies bearer tokens. With AuthRequired, user routes reject
	// anonymous callers.
	Issuer       *auth.Issuer
	AuthRequired bool

	// GlobalLimiter applies to every route; CredentialLimiter also applies to
	// login and password reset. Either may be nil.
	GlobalLimiter     httpmiddleware.Limiter
	CredentialLimiter httpmiddleware.Limiter

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck

	ServiceName   string
	CORSOrigins   []string
	MaxUploadSize int64
	Log           *slog.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()
	if d.Log == nil {
		d.Log = slog.Default()
	}
	h := &handler{
		accounts:   d.Accounts,
		rosters:    d.Rosters,
		attendance: d.Attendance,
		uploads:    d.Uploads,
		maxUpload:  d.MaxUploadSize,
		log:        d.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(httpmiddleware.RequestLogger(d.Log, "/healthz", "/metrics"))
	if d.Metrics != nil {
		r.Use(d.Metrics.GinMiddleware())
	}
	r.Use(corsMiddleware(d.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	if d.GlobalLimiter != nil {
		r.Use(httpmiddleware.RateLimit(d.GlobalLimiter, "global"))
	}

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", healthz(d.Health))

	credentials := []gin.HandlerFunc{}
	if d.CredentialLimiter != nil {
		credentials = append(credentials, httpmiddleware.RateLimit(d.CredentialLimiter, "credentials"))
	}

	r.POST("/register", h.register)
	r.POST("/login", append(credentials, h.login)...)
	r.POST("/reset-password", append(credentials, h.resetPassword)...)

	users := r.Group("/")
	if d.Issuer != nil {
		users.Use(auth.Bearer(d.Issuer, d.AuthRequired))
	}
	users.POST("/upload-students", h.uploadStudents)
	users.POST("/save-students", h.saveStudents)
	users.POST("/save-attendance", h.saveAttendance)
	users.GET("/profile/:userId", h.getProfile)
	users.PUT("/profile/:userId", h.updateProfile)
	users.GET("/students/:userId", h.listStudents)
	users.GET("/attendance/:userId", h.listAttendance)
	users.GET("/attendance/:userId/summary", h.attendanceSummary)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(ctx)
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
