package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hoteldesk/internal/app/outbox"
	"hoteldesk/internal/app/policies"
	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/daterange"
	"hoteldesk/internal/domain/shared/events"
)

var ErrStatusWrite = errors.New("rooms: status write failed")

// StatusWriteError reports a reconciled status that could not be persisted.
// Reconciliation is idempotent, so the caller may simply run it again.
type StatusWriteError struct {
	RoomID  string
	Current room.Status
	Target  room.Status
	Err     error
}

func (e *StatusWriteError) Error() string {
	return fmt.Sprintf("rooms: persist status %s for room %s: %v", e.Target, e.RoomID, e.Err)
}

func (e *StatusWriteError) Unwrap() []error { return []error{ErrStatusWrite, e.Err} }

// Reconciler keeps the denormalized room status in line with today's reservations.
type Reconciler struct {
	UoWFactory uow.Factory
	Logger     *slog.Logger
	Outbox     outbox.Outbox
	Notifier   policies.Notifier
	// Now and Location define "today"; they default to time.Now and UTC.
	Now      func() time.Time
	Location *time.Location
}

// Today is the hotel-local calendar date.
func (r *Reconciler) Today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return daterange.Day(now().In(loc))
}

// Outcome is the result of reconciling one stored room.
type Outcome struct {
	RoomID   string
	Previous room.Status
	Status   room.Status
}

func (o Outcome) Changed() bool { return o.Status != o.Previous }

// Reconcile recomputes the occupancy status of one room and writes it only when
// it changed. Manual housekeeping states are returned untouched without reading
// any reservation. On a failed write the persisted status is returned together
// with a *StatusWriteError carrying the computed target. Listeners are notified
// once the unit has finished; a unit inherited from ctx is committed by its owner.
func (r *Reconciler) Reconcile(ctx context.Context, roomID string, key booking.RoomKey, current room.Status) (room.Status, error) {
	if current.IsManual() {
		return current, nil
	}
	unit, execCtx, finish, err := uow.Join(ctx, r.UoWFactory, uow.TxOptions{})
	if err != nil {
		return current, err
	}
	status, ev, err := r.reconcileIn(execCtx, unit, roomID, key, current)
	finish(&err)
	if err != nil {
		return current, err
	}
	r.notify(ctx, ev)
	return status, nil
}

func (r *Reconciler) reconcileIn(ctx context.Context, unit uow.UnitOfWork, roomID string, key booking.RoomKey, current room.Status) (room.Status, *room.StatusChanged, error) {
	policy := availability.Policy{Source: unit.Reservations(), Logger: r.Logger}
	today := r.Today()
	booked, err := policy.IsDateOccupied(ctx, today, availability.Context{Room: key})
	if err != nil {
		return current, nil, err
	}
	target, changed := room.Decide(current, booked)
	if !changed {
		return current, nil, nil
	}
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now().UTC()
	}
	if err := unit.Rooms().UpdateStatus(ctx, roomID, target, now); err != nil {
		if r.Logger != nil {
			r.Logger.Error("room status write failed", "room_id", roomID, "room", key.String(), "target", target, "error", err)
		}
		return current, nil, &StatusWriteError{RoomID: roomID, Current: current, Target: target, Err: err}
	}
	ev := room.StatusChanged{RoomID: roomID, Room: key, From: current, To: target, At: now}
	if err := outbox.Append(ctx, r.Outbox, []events.DomainEvent{ev}); err != nil && r.Logger != nil {
		r.Logger.Warn("room status event not staged", "room_id", roomID, "error", err)
	}
	if r.Logger != nil {
		r.Logger.Info("room status reconciled", "room_id", roomID, "room", key.String(), "from", current, "to", target, "today", today.Format(daterange.DateLayout))
	}
	return target, &ev, nil
}

func (r *Reconciler) notify(ctx context.Context, ev *room.StatusChanged) {
	if ev == nil || r.Notifier == nil {
		return
	}
	r.Notifier.Notify(ctx, *ev)
}

// ReconcileRoom loads the room and reconciles it against its stored status.
func (r *Reconciler) ReconcileRoom(ctx context.Context, roomID string) (room.Status, error) {
	out, err := r.reconcileStored(ctx, func(ctx context.Context, rooms room.Repository) (*room.Room, error) {
		return rooms.ByID(ctx, roomID)
	})
	return out.Status, err
}

// ReconcileRoomByKey resolves the room by its natural key, for reservations
// stored without a room id.
func (r *Reconciler) ReconcileRoomByKey(ctx context.Context, key booking.RoomKey) (Outcome, error) {
	return r.reconcileStored(ctx, func(ctx context.Context, rooms room.Repository) (*room.Room, error) {
		return rooms.ByKey(ctx, key)
	})
}

// reconcileStored loads the room and reconciles it in the same unit.
func (r *Reconciler) reconcileStored(ctx context.Context, load func(context.Context, room.Repository) (*room.Room, error)) (Outcome, error) {
	unit, execCtx, finish, err := uow.Join(ctx, r.UoWFactory, uow.TxOptions{})
	if err != nil {
		return Outcome{}, err
	}
	rm, err := load(execCtx, unit.Rooms())
	if err != nil {
		finish(&err)
		return Outcome{}, err
	}
	out := Outcome{RoomID: rm.ID, Previous: rm.Status, Status: rm.Status}
	if rm.Status.IsManual() {
		finish(&err)
		return out, err
	}
	status, ev, err := r.reconcileIn(execCtx, unit, rm.ID, rm.Key, rm.Status)
	finish(&err)
	if err != nil {
		return out, err
	}
	out.Status = status
	r.notify(ctx, ev)
	return out, nil
}
