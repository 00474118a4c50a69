package sse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// Identity headers set by the upstream authentication layer. The hub performs
// no credential checks of its own; values arriving here are already verified.
const (
	HeaderTenantID  = "X-Tenant-ID"
	HeaderSubjectID = "X-Subject-ID"
)

type StreamHandler struct {
	registry *hub.Registry
	logger   logger.Logger
}

func NewStreamHandler(registry *hub.Registry, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		registry: registry,
		logger:   log.WithField("handler", "sse"),
	}
}

// Connect opens the event stream: it builds an SSE transport over the
// response, registers the connection and then holds the response open until
// teardown or client disconnect. Registration fails closed with 429 when the
// tenant is at its cap.
func (h *StreamHandler) Connect(c *gin.Context) {
	tenantID := c.GetHeader(HeaderTenantID)
	subjectID := c.GetHeader(HeaderSubjectID)
	if tenantID == "" || subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "missing tenant or subject identity",
		})
		return
	}

	transport := hub.NewSSETransport(c.Writer)

	conn, err := h.registry.Register(tenantID, subjectID, transport)
	if err != nil {
		// The stream headers were already set; let the JSON renderer
		// replace the content type on the rejection response.
		c.Writer.Header().Del("Content-Type")
		if hub.IsLimitExceeded(err) {
			h.logger.Warnf("registration rejected for tenant %s: %v", tenantID, err)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "tenant connection limit reached",
			})
			return
		}
		h.logger.Errorf("failed to register connection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to register connection",
		})
		return
	}

	// The hello frame goes through the transport so it serializes with
	// heartbeat writes.
	hello, _ := json.Marshal(map[string]any{
		"connection_id": conn.ID(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
	if err := transport.Send(c.Request.Context(), "connected", hello); err != nil {
		h.registry.Unregister(conn.ID())
		return
	}

	select {
	case <-conn.Done():
		h.logger.Infof("connection %s torn down", conn.ID())
	case <-c.Request.Context().Done():
		h.registry.Unregister(conn.ID())
		h.logger.Infof("client disconnected %s", conn.ID())
	}
}
