package availability

import (
	"time"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

// OverbookingPrevented is recorded when a booking attempt was refused for overlapping dates.
type OverbookingPrevented struct {
	Room      booking.RoomKey         `json:"room"`
	Requested daterange.DateRange     `json:"requested"`
	Blocking  []booking.ReservationID `json:"blocking"`
	At        time.Time               `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "availability.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.Room.String() }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func OverbookingPreventedEvent(key booking.RoomKey, requested daterange.DateRange, conflicts []Conflict, at time.Time) OverbookingPrevented {
	ids := make([]booking.ReservationID, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ReservationID)
	}
	return OverbookingPrevented{Room: key, Requested: requested, Blocking: ids, At: at.UTC()}
}
