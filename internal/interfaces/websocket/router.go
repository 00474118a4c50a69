package websocket

import (
	"github.com/gin-gonic/gin"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

func InitWebSocketRouter(log logger.Logger, registry *hub.Registry, rg *gin.RouterGroup) {
	handler := NewWebSocketHandler(registry, log)

	rg.GET("/events/ws", handler.Connect)
}
