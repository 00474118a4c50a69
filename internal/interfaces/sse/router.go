package sse

import (
	"github.com/gin-gonic/gin"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

func InitStreamRouter(log logger.Logger, registry *hub.Registry, rg *gin.RouterGroup) {
	handler := NewStreamHandler(registry, log)

	rg.GET("/events/stream", handler.Connect)
}
