package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
	"github.com/blernix/tableback-sub000/internal/interfaces/rest/v1/handler"
	"github.com/blernix/tableback-sub000/internal/interfaces/sse"
	"github.com/blernix/tableback-sub000/internal/interfaces/websocket"
)

func InitRouter(
	registry *hub.Registry,
	broadcaster *hub.Broadcaster,
	promRegistry *prometheus.Registry,
	log logger.Logger,
) http.Handler {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, X-Subject-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	rootGroup.GET("/hub/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"connections": registry.Len(),
		})
	})

	rootGroup.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		promRegistry,
		promhttp.HandlerOpts{},
	)))

	eventHandler := handler.NewReservationEventHandler(broadcaster, log)
	apiGroup := rootGroup.Group("/api/v1")
	{
		apiGroup.POST("/reservations/events", eventHandler.Emit)
	}

	sse.InitStreamRouter(log, registry, rootGroup)
	websocket.InitWebSocketRouter(log, registry, rootGroup)

	return router
}
