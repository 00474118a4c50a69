package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// ReservationEventHandler is the boundary where the reservation CRUD side of
// the system (out of scope here) hands lifecycle events to the hub for
// fan-out to dashboards.
type ReservationEventHandler struct {
	broadcaster *hub.Broadcaster
	logger      logger.Logger
}

type ReservationEventRequest struct {
	Type        string          `json:"type"        binding:"required"`
	Reservation hub.Reservation `json:"reservation" binding:"required"`
}

func NewReservationEventHandler(broadcaster *hub.Broadcaster, log logger.Logger) *ReservationEventHandler {
	return &ReservationEventHandler{
		broadcaster: broadcaster,
		logger:      log.WithField("handler", "reservation_events"),
	}
}

// Emit validates the event and fans it out to the reservation's restaurant
// tenant. Responds with the delivered count; callers needing per-connection
// confirmation consult the analytics collector instead.
func (h *ReservationEventHandler) Emit(c *gin.Context) {
	var req ReservationEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("invalid event request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid event format",
		})
		return
	}

	eventType := hub.EventType(req.Type)
	if !eventType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown event type: " + req.Type,
		})
		return
	}
	if req.Reservation.RestaurantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "reservation.restaurantId is required",
		})
		return
	}

	tenantID := req.Reservation.RestaurantID
	event := hub.NewEvent(eventType, tenantID, req.Reservation)
	delivered := h.broadcaster.Emit(c.Request.Context(), tenantID, event)

	c.JSON(http.StatusOK, gin.H{
		"status":    "emitted",
		"type":      req.Type,
		"delivered": delivered,
	})
}
