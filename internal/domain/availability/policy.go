package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

var (
	ErrInvalidRange     = daterange.ErrInvalidRange
	ErrDataFetch        = errors.New("availability: reservations fetch failed")
	ErrRangeUnavailable = errors.New("availability: range overlaps an existing reservation")
)

// DataFetchError wraps a failed read of a room's reservations.
type DataFetchError struct {
	Room booking.RoomKey
	Err  error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("availability: fetch reservations for %s: %v", e.Room, e.Err)
}

func (e *DataFetchError) Unwrap() []error { return []error{ErrDataFetch, e.Err} }

// ConflictError carries the reservations that made a range unavailable.
type ConflictError struct {
	Room      booking.RoomKey
	Range     daterange.DateRange
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, string(c.ReservationID))
	}
	if e.Room.IsZero() {
		return fmt.Sprintf("%v: %s conflicts with %s", ErrRangeUnavailable, e.Range, strings.Join(ids, ","))
	}
	return fmt.Sprintf("%v: %s %s conflicts with %s", ErrRangeUnavailable, e.Room, e.Range, strings.Join(ids, ","))
}

func (e *ConflictError) Unwrap() error { return ErrRangeUnavailable }

// Context scopes a query to a room and optionally to a reservation being edited.
type Context struct {
	Room                 booking.RoomKey
	ExcludeReservationID booking.ReservationID
}

// Selected is false while the dashboard has not picked both property and room.
func (c Context) Selected() bool {
	return !c.Room.IsZero()
}

// ReservationSource is the read side the policy needs from the booking store.
type ReservationSource interface {
	ForRoom(ctx context.Context, key booking.RoomKey) ([]booking.Reservation, error)
}

// Policy layers the booking rules on top of a freshly built Index.
type Policy struct {
	Source ReservationSource
	Logger *slog.Logger
}

// Index fetches the room's reservations and builds an index for this query only.
// Without a selected room it returns an empty index and touches no store.
func (p Policy) Index(ctx context.Context, qc Context) (*Index, error) {
	if !qc.Selected() {
		return nil, nil
	}
	if p.Source == nil {
		return nil, &DataFetchError{Room: qc.Room, Err: errors.New("no reservation source configured")}
	}
	reservations, err := p.Source.ForRoom(ctx, qc.Room)
	if err != nil {
		return nil, &DataFetchError{Room: qc.Room, Err: err}
	}
	idx, report := Build(reservations, qc.ExcludeReservationID)
	if p.Logger != nil {
		for _, skipped := range report.Skipped {
			p.Logger.Warn("reservation skipped from availability", "room", qc.Room.String(), "error", skipped)
		}
		p.Logger.Debug("availability index built", "room", qc.Room.String(), "retained", report.Retained,
			"excluded", report.Excluded, "non_blocking", report.NonBlocking, "skipped", len(report.Skipped))
	}
	return idx, nil
}

// IsDateOccupied reports true on fetch failure so callers never offer unknown dates.
func (p Policy) IsDateOccupied(ctx context.Context, d time.Time, qc Context) (bool, error) {
	idx, err := p.Index(ctx, qc)
	if err != nil {
		return true, err
	}
	return idx.IsDateOccupied(d), nil
}

// IsRangeAvailable validates the range before anything else and reports false on fetch failure.
func (p Policy) IsRangeAvailable(ctx context.Context, from, to time.Time, qc Context) (bool, error) {
	if _, err := daterange.New(from, to); err != nil {
		return false, ErrInvalidRange
	}
	idx, err := p.Index(ctx, qc)
	if err != nil {
		return false, err
	}
	return idx.IsRangeAvailable(from, to)
}

// IsDayDisabled is the picker predicate. The edited reservation's own nights stay
// selectable because its id is excluded from the index.
func (p Policy) IsDayDisabled(ctx context.Context, d time.Time, qc Context) (bool, error) {
	return p.IsDateOccupied(ctx, d, qc)
}

// Check returns a *ConflictError when dr cannot be booked under qc.
func (p Policy) Check(ctx context.Context, dr daterange.DateRange, qc Context) error {
	if err := dr.Validate(); err != nil {
		return ErrInvalidRange
	}
	idx, err := p.Index(ctx, qc)
	if err != nil {
		return err
	}
	if conflicts := idx.Conflicts(dr); len(conflicts) > 0 {
		return &ConflictError{Room: qc.Room, Range: dr, Conflicts: conflicts}
	}
	return nil
}
