package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	availabilityapp "hoteldesk/internal/app/handlers/availability"
	"hoteldesk/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Bus         bus.Bus
	Logger      *slog.Logger
	DisablePast bool
}

func scopeFrom(c *gin.Context) availabilityapp.Scope {
	return availabilityapp.Scope{
		Property:             c.Query("property"),
		RoomNumber:           c.Query("room"),
		ExcludeReservationID: c.Query("exclude"),
	}
}

func (h AvailabilityHandler) Occupied(c *gin.Context) {
	date, err := daterange.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, h.Logger, err, nil)
		return
	}
	q := availabilityapp.DateOccupiedQuery{Scope: scopeFrom(c), Date: date}
	result, err := bus.Send[availabilityapp.DateOccupiedQuery, *dto.DateOccupancy](c.Request.Context(), h.Bus, q)
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"occupied": true, "disabled": true})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Range(c *gin.Context) {
	from, err := daterange.ParseDate(c.Query("from"))
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"available": false})
		return
	}
	to, err := daterange.ParseDate(c.Query("to"))
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"available": false})
		return
	}
	q := availabilityapp.RangeAvailabilityQuery{Scope: scopeFrom(c), From: from, To: to}
	result, err := bus.Send[availabilityapp.RangeAvailabilityQuery, *dto.RangeAvailability](c.Request.Context(), h.Bus, q)
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"available": false})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	month, err := time.Parse("2006-01", c.Query("month"))
	if err != nil {
		respondError(c, h.Logger, fmt.Errorf("%w: month %q", daterange.ErrUnparseableDate, c.Query("month")), nil)
		return
	}
	q := availabilityapp.CalendarMonthQuery{Scope: scopeFrom(c), Year: month.Year(), Month: month.Month(), DisablePast: h.DisablePast}
	result, err := bus.Send[availabilityapp.CalendarMonthQuery, *dto.CalendarMonth](c.Request.Context(), h.Bus, q)
	if err != nil {
		respondError(c, h.Logger, err, gin.H{"available": false})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
