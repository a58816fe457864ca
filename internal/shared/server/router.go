package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/auth"
	"pdfchat-backend/internal/conversations"
	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/services/health"
	"pdfchat-backend/internal/shared/config"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/server/middleware"
	"pdfchat-backend/internal/shared/server/respond"
	"pdfchat-backend/internal/users"
)

const apiPrefix = "/api/v1"

// RouterDeps carries handlers to register on the router.
type RouterDeps struct {
	Config              config.Config
	Resolver            middleware.TokenResolver
	Health              *health.Service
	AuthHandler         *auth.Handler
	GoogleAuth          *auth.GoogleService
	UserHandler         *users.Handler
	DocumentHandler     *documents.Handler
	ConversationHandler *conversations.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Resolver,
			apiPrefix+"/auth/",
			apiPrefix+"/health",
			apiPrefix+"/metrics",
		),
	)

	api := r.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		payload, ok := deps.Health.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, payload)
			return
		}
		respond.OK(c, payload)
	})
	api.GET("/metrics", metrics.Handler())

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ConversationHandler != nil {
		deps.ConversationHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
