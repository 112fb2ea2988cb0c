package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hoteldesk/internal/domain/shared/daterange"
	"hoteldesk/internal/domain/shared/events"
)

var (
	ErrUnknownStatus       = errors.New("booking: unknown status")
	ErrInvalidInterval     = errors.New("booking: invalid reservation interval")
	ErrInvalidTransition   = errors.New("booking: invalid status transition")
	ErrReservationNotFound = errors.New("booking: reservation not found")
	ErrRoomRequired        = errors.New("booking: property and room number required")
)

type ReservationID string

// RoomKey scopes reservations to one physical room by property and room number.
// Reservations are joined to rooms through this pair rather than a room id.
type RoomKey struct {
	PropertyKey string `json:"property"`
	RoomNumber  string `json:"room_number"`
}

func NewRoomKey(property, number string) RoomKey {
	return RoomKey{PropertyKey: strings.TrimSpace(property), RoomNumber: strings.TrimSpace(number)}
}

// IsZero is true until both property and room are selected.
func (k RoomKey) IsZero() bool {
	return k.PropertyKey == "" || k.RoomNumber == ""
}

func (k RoomKey) String() string {
	return k.PropertyKey + "/" + k.RoomNumber
}

type Reservation struct {
	ID        ReservationID
	Room      RoomKey
	RoomID    string
	CheckIn   time.Time
	CheckOut  time.Time
	Status    Status
	GuestName string
	CreatedAt time.Time
	UpdatedAt time.Time
	events.Recorder
}

type Repository interface {
	// ForRoom may pre-filter to blocking statuses; callers re-filter anyway.
	ForRoom(ctx context.Context, key RoomKey) ([]Reservation, error)
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
	// Delete fails with ErrReservationNotFound when nothing was removed.
	Delete(ctx context.Context, id ReservationID) error
}

// InvalidIntervalError is returned for stored reservations whose dates cannot form a stay.
type InvalidIntervalError struct {
	ReservationID ReservationID
	CheckIn       time.Time
	CheckOut      time.Time
	Reason        string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("booking: reservation %s has invalid interval %s..%s: %s",
		e.ReservationID, e.CheckIn.Format(daterange.DateLayout), e.CheckOut.Format(daterange.DateLayout), e.Reason)
}

func (e *InvalidIntervalError) Unwrap() error { return ErrInvalidInterval }

// Interval is the normalized occupied span of a reservation.
type Interval struct {
	ReservationID ReservationID
	Range         daterange.DateRange
	Blocking      bool
}

func (i Interval) ContainsDate(d time.Time) bool {
	return i.Range.ContainsDate(d)
}

func ToInterval(r Reservation) (Interval, error) {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return Interval{}, &InvalidIntervalError{ReservationID: r.ID, CheckIn: r.CheckIn, CheckOut: r.CheckOut, Reason: "missing date"}
	}
	dr, err := daterange.New(r.CheckIn, r.CheckOut)
	if err != nil {
		return Interval{}, &InvalidIntervalError{ReservationID: r.ID, CheckIn: r.CheckIn, CheckOut: r.CheckOut, Reason: "checkout not after checkin"}
	}
	return Interval{ReservationID: r.ID, Range: dr, Blocking: r.Status.IsBlocking()}, nil
}

type NewParams struct {
	ID        ReservationID
	Room      RoomKey
	RoomID    string
	Range     daterange.DateRange
	GuestName string
	Status    Status
	Now       time.Time
}

func NewReservation(p NewParams) (*Reservation, error) {
	if p.Room.IsZero() {
		return nil, ErrRoomRequired
	}
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = StatusPending
	}
	if !status.IsBlocking() {
		return nil, fmt.Errorf("%w: cannot create a reservation as %s", ErrInvalidTransition, status)
	}
	now := p.Now.UTC()
	r := &Reservation{
		ID:        p.ID,
		Room:      p.Room,
		RoomID:    p.RoomID,
		CheckIn:   p.Range.CheckIn,
		CheckOut:  p.Range.CheckOut,
		Status:    status,
		GuestName: strings.TrimSpace(p.GuestName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Record(ReservationChanged{ReservationID: r.ID, Room: r.Room, RoomID: r.RoomID, Range: p.Range, Status: r.Status, At: now})
	return r, nil
}

func (r *Reservation) Range() (daterange.DateRange, error) {
	iv, err := ToInterval(*r)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return iv.Range, nil
}

// Reschedule moves the stay. Only reservations that still hold the room can move.
func (r *Reservation) Reschedule(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	switch r.Status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
	case StatusCheckedOut, StatusCancelled:
		return fmt.Errorf("%w: cannot reschedule a %s reservation", ErrInvalidTransition, r.Status)
	}
	r.CheckIn, r.CheckOut = dr.CheckIn, dr.CheckOut
	r.touch(now)
	return nil
}

// Transition moves the reservation to the target status following the front-desk lifecycle.
func (r *Reservation) Transition(target Status, now time.Time) error {
	if !allowedTransition(r.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, target)
	}
	r.Status = target
	r.touch(now)
	return nil
}

// Remove records the deletion of the reservation. Any status may be removed;
// the stored record is gone once the caller deletes it.
func (r *Reservation) Remove(now time.Time) {
	r.UpdatedAt = now.UTC()
	r.Record(ReservationChanged{
		ReservationID: r.ID,
		Room:          r.Room,
		RoomID:        r.RoomID,
		Range:         daterange.DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut},
		Status:        r.Status,
		Deleted:       true,
		At:            r.UpdatedAt,
	})
}

func (r *Reservation) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
	r.Record(ReservationChanged{
		ReservationID: r.ID,
		Room:          r.Room,
		RoomID:        r.RoomID,
		Range:         daterange.DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut},
		Status:        r.Status,
		At:            r.UpdatedAt,
	})
}

func allowedTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusCheckedIn
	case StatusConfirmed:
		return to == StatusCheckedIn || to == StatusCancelled
	case StatusCheckedIn:
		return to == StatusCheckedOut
	case StatusCheckedOut, StatusCancelled:
		return false
	}
	return false
}
