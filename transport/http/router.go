package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/service"
)

// Services are the handlers' dependencies
type Services struct {
	Auth       *service.AuthService
	Subnames   *service.SubnameService
	Identities *service.IdentityService
}

// SetupRouter sets up the Gin router. A nil gatherer serves the default
// prometheus registry.
func SetupRouter(svc Services, gatherer prometheus.Gatherer, lg log.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(lg))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	authHandlers := NewAuthHandlers(svc.Auth)
	subnameHandlers := NewSubnameHandlers(svc.Subnames)
	identityHandlers := NewIdentityHandlers(svc.Identities)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/login", authHandlers.Login)
	}

	api := router.Group("/api")
	{
		api.GET("/subname/available", subnameHandlers.Available)
		api.GET("/identity/:address", identityHandlers.Get)
	}

	// Protected API routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(svc.Auth))
	{
		protected.GET("/me", authHandlers.Me)
		protected.POST("/subname/create", subnameHandlers.Create)
		protected.POST("/identity/:address/refresh", identityHandlers.Refresh)
	}

	return router
}
