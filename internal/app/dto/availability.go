package dto

import (
	"time"

	"hoteldesk/internal/app/calendar"
	"hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

type Room struct {
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
}

func MapRoomKey(k booking.RoomKey) Room {
	return Room{Property: k.PropertyKey, RoomNumber: k.RoomNumber}
}

type Span struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func MapSpan(dr daterange.DateRange) Span {
	return Span{From: dr.CheckIn.Format(daterange.DateLayout), To: dr.CheckOut.Format(daterange.DateLayout)}
}

type Conflict struct {
	ReservationID string `json:"reservation_id"`
	Booked        Span   `json:"booked"`
	Overlap       Span   `json:"overlap"`
}

func MapConflicts(cs []availability.Conflict) []Conflict {
	out := make([]Conflict, 0, len(cs))
	for _, c := range cs {
		out = append(out, Conflict{ReservationID: string(c.ReservationID), Booked: MapSpan(c.Booked), Overlap: MapSpan(c.Overlap)})
	}
	return out
}

type DateOccupancy struct {
	Room     Room   `json:"room"`
	Date     string `json:"date"`
	Occupied bool   `json:"occupied"`
	Disabled bool   `json:"disabled"`
}

type RangeAvailability struct {
	Room      Room       `json:"room"`
	Range     Span       `json:"range"`
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
	NextFree  string     `json:"next_free,omitempty"`
}

type CalendarDay struct {
	Date     string `json:"date"`
	Booked   bool   `json:"booked"`
	Disabled bool   `json:"disabled"`
	Past     bool   `json:"past,omitempty"`
}

type CalendarMonth struct {
	Room    Room          `json:"room"`
	Month   string        `json:"month"`
	Days    []CalendarDay `json:"days"`
	Blocked []Span        `json:"blocked"`
}

func MapCalendarMonth(key booking.RoomKey, year int, month time.Month, days []calendar.Day, blocked []daterange.DateRange) CalendarMonth {
	out := CalendarMonth{
		Room:    MapRoomKey(key),
		Month:   time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Days:    make([]CalendarDay, 0, len(days)),
		Blocked: make([]Span, 0, len(blocked)),
	}
	for _, d := range days {
		out.Days = append(out.Days, CalendarDay{
			Date:     d.Date.Format(daterange.DateLayout),
			Booked:   d.Booked,
			Disabled: d.Disabled,
			Past:     d.Past,
		})
	}
	for _, b := range blocked {
		out.Blocked = append(out.Blocked, MapSpan(b))
	}
	return out
}
