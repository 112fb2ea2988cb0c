package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hoteldesk/internal/app/dto"
	roomsapp "hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/app/middleware"
	"hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/daterange"
)

func statusFor(err error) int {
	var replayed *middleware.ReplayedError
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrUnparseableDate),
		errors.Is(err, booking.ErrUnknownStatus),
		errors.Is(err, booking.ErrRoomRequired),
		errors.Is(err, booking.ErrInvalidInterval),
		errors.Is(err, room.ErrUnknownStatus),
		errors.Is(err, roomsapp.ErrRoomIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrReservationNotFound),
		errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, availability.ErrRangeUnavailable),
		errors.As(err, &replayed):
		return http.StatusConflict
	case errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, availability.ErrDataFetch):
		return http.StatusServiceUnavailable
	case errors.Is(err, roomsapp.ErrStatusWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. body carries endpoint-specific
// fail-safe fields and may be nil.
func respondError(c *gin.Context, logger *slog.Logger, err error, body gin.H) {
	status := statusFor(err)
	if body == nil {
		body = gin.H{}
	}
	body["error"] = err.Error()

	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		body["conflicts"] = dto.MapConflicts(conflict.Conflicts)
	}
	var writeErr *roomsapp.StatusWriteError
	if errors.As(err, &writeErr) {
		body["room_id"] = writeErr.RoomID
		body["status"] = string(writeErr.Current)
		body["computed_status"] = string(writeErr.Target)
	}

	_ = c.Error(err)
	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}
