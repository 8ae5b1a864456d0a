package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebot/internal/service"
)

// TripHandler exposes the operational trip endpoints. The core never
// times out a DriverPending trip itself; an external scheduler calls
// rebroadcast to re-run fan-out for trips nobody answered.
type TripHandler struct {
	assignment *service.AssignmentService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(assignment *service.AssignmentService) *TripHandler {
	return &TripHandler{assignment: assignment}
}

// Rebroadcast handles POST /v1/trips/:id/rebroadcast.
func (h *TripHandler) Rebroadcast(c *gin.Context) {
	tripID := c.Param("id")

	if err := h.assignment.Rebroadcast(c.Request.Context(), tripID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
