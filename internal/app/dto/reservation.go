package dto

import (
	"time"

	"hoteldesk/internal/domain/booking"
)

type Reservation struct {
	ID        string    `json:"id"`
	Room      Room      `json:"room"`
	RoomID    string    `json:"room_id,omitempty"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Status    string    `json:"status"`
	GuestName string    `json:"guest_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func MapReservation(r *booking.Reservation) Reservation {
	return Reservation{
		ID:        string(r.ID),
		Room:      MapRoomKey(r.Room),
		RoomID:    r.RoomID,
		CheckIn:   r.CheckIn.Format("2006-01-02"),
		CheckOut:  r.CheckOut.Format("2006-01-02"),
		Status:    string(r.Status),
		GuestName: r.GuestName,
		UpdatedAt: r.UpdatedAt,
	}
}

// ReservationResult is returned by booking mutations. RoomStatus is empty when
// reconciliation was skipped; Warnings carry non-fatal follow-up failures.
// Deleted marks the last state of a reservation that no longer exists.
type ReservationResult struct {
	Reservation Reservation `json:"reservation"`
	Deleted     bool        `json:"deleted,omitempty"`
	RoomStatus  string      `json:"room_status,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
}

type RoomStatus struct {
	RoomID  string `json:"room_id"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}

type SweepReport struct {
	Rooms   int      `json:"rooms"`
	Changed int      `json:"changed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
