package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	bookingapp "hoteldesk/internal/app/handlers/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

type ReservationHandler struct {
	Bus    bus.Bus
	Logger *slog.Logger
}

type createReservationRequest struct {
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
	RoomID     string `json:"room_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	GuestName  string `json:"guest_name"`
	Status     string `json:"status"`
}

type updateDatesRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, out, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	cmd := bookingapp.CreateReservationCommand{
		RequestID:  c.GetHeader("Idempotency-Key"),
		Property:   req.Property,
		RoomNumber: req.RoomNumber,
		RoomID:     req.RoomID,
		CheckIn:    in,
		CheckOut:   out,
		GuestName:  req.GuestName,
		Status:     req.Status,
	}
	result, err := bus.Send[bookingapp.CreateReservationCommand, *dto.ReservationResult](c.Request.Context(), h.Bus, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) UpdateDates(c *gin.Context) {
	var req updateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, out, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	cmd := bookingapp.UpdateReservationDatesCommand{ReservationID: c.Param("id"), CheckIn: in, CheckOut: out}
	result, err := bus.Send[bookingapp.UpdateReservationDatesCommand, *dto.ReservationResult](c.Request.Context(), h.Bus, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.ChangeReservationStatusCommand{ReservationID: c.Param("id"), Status: req.Status}
	result, err := bus.Send[bookingapp.ChangeReservationStatusCommand, *dto.ReservationResult](c.Request.Context(), h.Bus, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Delete(c *gin.Context) {
	cmd := bookingapp.DeleteReservationCommand{ReservationID: c.Param("id")}
	result, err := bus.Send[bookingapp.DeleteReservationCommand, *dto.ReservationResult](c.Request.Context(), h.Bus, cmd)
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseStay(checkIn, checkOut string) (in, out time.Time, err error) {
	if in, err = daterange.ParseDate(checkIn); err != nil {
		return
	}
	out, err = daterange.ParseDate(checkOut)
	return
}

var _ ReservationHTTP = ReservationHandler{}
