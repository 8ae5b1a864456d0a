package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridebot/internal/handler"
	"ridebot/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	WebhookHandler *handler.WebhookHandler
	TripHandler    *handler.TripHandler
	WebhookSecret  string
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Telegram webhook.
	router.POST("/webhook",
		middleware.WebhookSecretMiddleware(deps.WebhookSecret),
		deps.WebhookHandler.Handle,
	)

	// Operational endpoints for the external retry scheduler.
	v1 := router.Group("/v1")
	{
		trips := v1.Group("/trips")
		{
			trips.POST("/:id/rebroadcast", deps.TripHandler.Rebroadcast)
		}
	}

	return router
}
