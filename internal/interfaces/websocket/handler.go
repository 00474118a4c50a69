package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

const (
	headerTenantID  = "X-Tenant-ID"
	headerSubjectID = "X-Subject-ID"

	// pongTimeout must exceed the hub heartbeat interval so ping/pong
	// round trips keep the read deadline alive.
	pongTimeout = 90 * time.Second
)

// WebSocketHandler upgrades dashboard clients that cannot hold an SSE stream
// open (typically proxies that buffer event streams) onto the same hub.
type WebSocketHandler struct {
	registry *hub.Registry
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(registry *hub.Registry, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		logger:   log.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking belongs to the upstream auth layer.
				return true
			},
		},
	}
}

// Connect upgrades the request and registers the connection. The read loop
// exists only to surface client closes and pong frames; the stream is
// outbound-push like the SSE leg.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	tenantID := c.GetHeader(headerTenantID)
	subjectID := c.GetHeader(headerSubjectID)
	if tenantID == "" || subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "missing tenant or subject identity",
		})
		return
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("failed to upgrade connection: %v", err)
		return
	}

	transport := hub.NewWebSocketTransport(wsConn)

	conn, err := h.registry.Register(tenantID, subjectID, transport)
	if err != nil {
		if hub.IsLimitExceeded(err) {
			h.logger.Warnf("registration rejected for tenant %s: %v", tenantID, err)
			wsConn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "tenant connection limit reached"),
				time.Now().Add(time.Second),
			)
		} else {
			h.logger.Errorf("failed to register connection: %v", err)
		}
		wsConn.Close()
		return
	}

	wsConn.SetReadDeadline(time.Now().Add(pongTimeout))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	// Teardown closes the underlying socket, which unblocks this loop.
	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			break
		}
	}
	h.registry.Unregister(conn.ID())
	h.logger.Infof("websocket connection %s disconnected", conn.ID())
}
