package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hoteldesk/internal/domain/booking"
)

var (
	ErrUnknownStatus = errors.New("room: unknown status")
	ErrRoomNotFound  = errors.New("room: not found")
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
	StatusCleaning    Status = "cleaning"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusAvailable:
		return StatusAvailable, nil
	case StatusOccupied:
		return StatusOccupied, nil
	case StatusMaintenance:
		return StatusMaintenance, nil
	case StatusCleaning:
		return StatusCleaning, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// IsManual marks states owned by housekeeping. Reconciliation never overwrites them.
func (s Status) IsManual() bool {
	switch s {
	case StatusMaintenance, StatusCleaning:
		return true
	case StatusAvailable, StatusOccupied:
		return false
	}
	return false
}

// Decide is the occupancy transition: manual states are kept, otherwise the
// status follows whether a blocking reservation spans today.
func Decide(current Status, booked bool) (Status, bool) {
	if current.IsManual() {
		return current, false
	}
	target := StatusAvailable
	if booked {
		target = StatusOccupied
	}
	return target, target != current
}

type Room struct {
	ID        string
	Key       booking.RoomKey
	Status    Status
	UpdatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Room, error)
	// ByKey resolves the room for reservations that carry only the natural key.
	ByKey(ctx context.Context, key booking.RoomKey) (*Room, error)
	List(ctx context.Context) ([]Room, error)
	// UpdateStatus writes the status and the updated timestamp, nothing else.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}

// StatusChanged is emitted after a reconciled status was persisted.
type StatusChanged struct {
	RoomID string          `json:"room_id"`
	Room   booking.RoomKey `json:"room"`
	From   Status          `json:"from"`
	To     Status          `json:"to"`
	At     time.Time       `json:"at"`
}

func (e StatusChanged) EventName() string     { return "room.status_changed" }
func (e StatusChanged) AggregateID() string   { return e.RoomID }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
