// Package calendar turns an availability index into date-picker state.
package calendar

import (
	"time"

	"hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

// Day is the render decoration for one cell of a month view.
type Day struct {
	Date     time.Time
	Booked   bool
	Disabled bool
	Past     bool
}

// Picker answers date-picker questions for one room. It holds the index of a
// single query and is thrown away on month navigation or room change.
type Picker struct {
	Index *availability.Index
	// Room names the room in conflict errors.
	Room  booking.RoomKey
	Today time.Time
	// DisablePast also greys out days before Today.
	DisablePast bool
}

// IsDayDisabled mirrors IsDateOccupied on the index. Nights of the reservation
// being edited are already excluded from the index and stay selectable.
func (p Picker) IsDayDisabled(d time.Time) bool {
	if p.DisablePast && p.isPast(d) {
		return true
	}
	return p.Index.IsDateOccupied(d)
}

func (p Picker) isPast(d time.Time) bool {
	return !p.Today.IsZero() && daterange.Day(d).Before(daterange.Day(p.Today))
}

// Month decorates each day of the month lazily computed from the index.
func (p Picker) Month(year int, month time.Month) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	span := daterange.DateRange{CheckIn: first, CheckOut: first.AddDate(0, 1, 0)}
	days := span.Days()
	out := make([]Day, 0, len(days))
	for _, d := range days {
		booked := p.Index.IsDateOccupied(d)
		out = append(out, Day{
			Date:     d,
			Booked:   booked,
			Past:     p.isPast(d),
			Disabled: p.IsDayDisabled(d),
		})
	}
	return out
}

// SelectRange validates a range picked by the user: [from, to) must be a real
// stay and must not cross any booked night.
func (p Picker) SelectRange(from, to time.Time) (daterange.DateRange, error) {
	dr, err := daterange.New(from, to)
	if err != nil {
		return daterange.DateRange{}, availability.ErrInvalidRange
	}
	if conflicts := p.Index.Conflicts(dr); len(conflicts) > 0 {
		return daterange.DateRange{}, &availability.ConflictError{Room: p.Room, Range: dr, Conflicts: conflicts}
	}
	return dr, nil
}
