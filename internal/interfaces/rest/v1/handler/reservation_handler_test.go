package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blernix/tableback-sub000/internal/infrastructure/analytics"
	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

type recordingTransport struct {
	frames int
}

func (t *recordingTransport) Send(ctx context.Context, event string, data []byte) error {
	t.frames++
	return nil
}
func (t *recordingTransport) KeepAlive(ctx context.Context) error { return nil }
func (t *recordingTransport) Close() error                        { return nil }
func (t *recordingTransport) Closed() bool                        { return false }

func newTestRouter(t *testing.T) (*gin.Engine, *hub.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogrusLogger(logger.NewDefaultConfig())
	log.SetOutput(io.Discard)

	registry := hub.NewRegistry(hub.Options{
		Limits:            hub.DefaultLimits(),
		HeartbeatInterval: time.Hour,
		Logger:            log,
	})
	t.Cleanup(registry.Close)

	broadcaster := hub.NewBroadcaster(registry, analytics.NopRecorder{}, time.Second, log, nil)

	router := gin.New()
	router.POST("/api/v1/reservations/events", NewReservationEventHandler(broadcaster, log).Emit)
	return router, registry
}

func postEvent(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEmitEndpointDeliversToTenant(t *testing.T) {
	router, registry := newTestRouter(t)

	transport := &recordingTransport{}
	_, err := registry.Register("rest-1", "subject-1", transport)
	require.NoError(t, err)

	w := postEvent(router, `{
		"type": "reservation_created",
		"reservation": {
			"id": "res-1",
			"customerName": "Ada Martin",
			"customerEmail": "ada@example.com",
			"date": "2026-09-01",
			"time": "19:30",
			"numberOfGuests": 4,
			"status": "pending",
			"restaurantId": "rest-1"
		}
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"delivered":1`)
	assert.Equal(t, 1, transport.frames)
}

func TestEmitEndpointRejectsUnknownType(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postEvent(router, `{
		"type": "reservation_exploded",
		"reservation": {"id": "res-1", "restaurantId": "rest-1"}
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmitEndpointRequiresRestaurantID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postEvent(router, `{
		"type": "reservation_updated",
		"reservation": {"id": "res-1"}
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmitEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postEvent(router, `{"type":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
