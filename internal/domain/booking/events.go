package booking

import (
	"time"

	"hoteldesk/internal/domain/shared/daterange"
)

// ReservationChanged tells listeners that availability for a room must be
// recomputed. Deleted is set when the reservation no longer exists.
type ReservationChanged struct {
	ReservationID ReservationID       `json:"reservation_id"`
	Room          RoomKey             `json:"room"`
	RoomID        string              `json:"room_id,omitempty"`
	Range         daterange.DateRange `json:"range"`
	Status        Status              `json:"status"`
	Deleted       bool                `json:"deleted,omitempty"`
	At            time.Time           `json:"at"`
}

func (e ReservationChanged) EventName() string     { return "reservation.changed" }
func (e ReservationChanged) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationChanged) OccurredAt() time.Time { return e.At }
