package rooms

import (
	"context"
	"errors"
	"strings"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

const (
	reconcileRoomKey = "rooms.reconcile"
	sweepRoomsKey    = "rooms.sweep"
)

var ErrRoomIDRequired = errors.New("rooms: room id required")

// ReconcileRoomCommand carries the caller's view of the room. When CurrentStatus
// is empty the stored room is loaded instead.
type ReconcileRoomCommand struct {
	RoomID        string
	Property      string
	RoomNumber    string
	CurrentStatus string
}

func (ReconcileRoomCommand) Key() string { return reconcileRoomKey }

// SelfCommitting lets listeners hear about a status change only after it is committed.
func (ReconcileRoomCommand) SelfCommitting() bool { return true }

type ReconcileRoomHandler struct {
	Reconciler *Reconciler
}

func (h *ReconcileRoomHandler) Handle(ctx context.Context, cmd ReconcileRoomCommand) (*dto.RoomStatus, error) {
	roomID := strings.TrimSpace(cmd.RoomID)
	if roomID == "" {
		return nil, ErrRoomIDRequired
	}
	if strings.TrimSpace(cmd.CurrentStatus) == "" {
		out, err := h.Reconciler.reconcileStored(ctx, func(ctx context.Context, rooms room.Repository) (*room.Room, error) {
			return rooms.ByID(ctx, roomID)
		})
		if err != nil {
			return nil, err
		}
		return &dto.RoomStatus{RoomID: out.RoomID, Status: string(out.Status), Changed: out.Changed()}, nil
	}
	current, err := room.ParseStatus(cmd.CurrentStatus)
	if err != nil {
		return nil, err
	}
	next, err := h.Reconciler.Reconcile(ctx, roomID, booking.NewRoomKey(cmd.Property, cmd.RoomNumber), current)
	if err != nil {
		return nil, err
	}
	return &dto.RoomStatus{RoomID: roomID, Status: string(next), Changed: next != current}, nil
}

type SweepRoomsCommand struct{}

func (SweepRoomsCommand) Key() string { return sweepRoomsKey }

// SelfCommitting keeps each room in its own unit so one failure cannot abort the rest.
func (SweepRoomsCommand) SelfCommitting() bool { return true }

// SweepRoomsHandler reconciles every room. A failure on one room is counted and
// logged; the sweep carries on with the rest.
type SweepRoomsHandler struct {
	Reconciler *Reconciler
}

func (h *SweepRoomsHandler) Handle(ctx context.Context, _ SweepRoomsCommand) (*dto.SweepReport, error) {
	unit, execCtx, finish, err := uow.Join(ctx, h.Reconciler.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	list, err := unit.Rooms().List(execCtx)
	finish(&err)
	if err != nil {
		return nil, err
	}

	report := &dto.SweepReport{Rooms: len(list)}
	for _, rm := range list {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		next, err := h.Reconciler.Reconcile(ctx, rm.ID, rm.Key, rm.Status)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			if h.Reconciler.Logger != nil {
				h.Reconciler.Logger.Warn("room sweep failed for room", "room_id", rm.ID, "error", err)
			}
			continue
		}
		if next != rm.Status {
			report.Changed++
		}
	}
	if h.Reconciler.Logger != nil {
		h.Reconciler.Logger.Info("room sweep finished", "rooms", report.Rooms, "changed", report.Changed, "failed", report.Failed)
	}
	return report, nil
}

// Register wires the room commands into r.
func Register(r *bus.Registry, rec *Reconciler) {
	bus.Register[ReconcileRoomCommand, *dto.RoomStatus](r, &ReconcileRoomHandler{Reconciler: rec})
	bus.Register[SweepRoomsCommand, *dto.SweepReport](r, &SweepRoomsHandler{Reconciler: rec})
}

var _ bus.Handler[ReconcileRoomCommand, *dto.RoomStatus] = (*ReconcileRoomHandler)(nil)
var _ bus.Handler[SweepRoomsCommand, *dto.SweepReport] = (*SweepRoomsHandler)(nil)
