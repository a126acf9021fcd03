package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/documents"
	"docmanager-backend/internal/projectnotes"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/server/middleware"
	"docmanager-backend/internal/shared/server/respond"
	"docmanager-backend/internal/shared/telemetry"
	"docmanager-backend/internal/users"
)

const authRateGroup = "AUTH"

// RouterDeps are the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config          config.Config
	Sessions        middleware.TokenResolver
	UserHandler     *users.Handler
	DocumentHandler *documents.Handler
	NoteHandler     *projectnotes.Handler
	// Ping reports database health; nil means no database is configured.
	Ping func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		telemetry.Warn("http.trusted_proxies_invalid", map[string]any{
			"proxies": deps.Config.TrustedProxies,
			"error":   err,
		})
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	authed := middleware.Auth(deps.Sessions)
	fileAccess := authed
	if deps.Config.PublicFileLinks {
		fileAccess = func(c *gin.Context) { c.Next() }
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", health(deps.Ping))

	authGroup := api.Group("/auth")
	if n := deps.Config.AuthRateLimitPerMinute; n > 0 {
		authGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: authRateGroup,
			Rules: map[string]middleware.RateLimitRule{
				authRateGroup: middleware.PerMinute(n),
			},
		}))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authGroup, authed)
	}

	docs := api.Group("/documents")
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(docs, authed, fileAccess)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterSearchRoutes(docs.Group("", authed))
	}

	if deps.NoteHandler != nil {
		deps.NoteHandler.RegisterRoutes(api.Group("/project-notes", authed))
	}

	return r
}

func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping == nil {
			respond.OK(c, gin.H{"ok": true, "database": "memory"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
			return
		}
		respond.OK(c, gin.H{"ok": true, "database": "up"})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
