package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	roomsapp "hoteldesk/internal/app/handlers/rooms"
)

type RoomHandler struct {
	Bus    bus.Bus
	Logger *slog.Logger
}

type reconcileRequest struct {
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
	Status     string `json:"status"`
}

// Reconcile accepts an optional body with the caller's view of the room. Without
// a status the stored room is used.
func (h RoomHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := roomsapp.ReconcileRoomCommand{
		RoomID:        c.Param("id"),
		Property:      req.Property,
		RoomNumber:    req.RoomNumber,
		CurrentStatus: req.Status,
	}
	result, err := bus.Send[roomsapp.ReconcileRoomCommand, *dto.RoomStatus](c.Request.Context(), h.Bus, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RoomHandler) Sweep(c *gin.Context) {
	result, err := bus.Send[roomsapp.SweepRoomsCommand, *dto.SweepReport](c.Request.Context(), h.Bus, roomsapp.SweepRoomsCommand{})
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ RoomHTTP = RoomHandler{}
