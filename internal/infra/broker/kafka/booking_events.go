package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	roomsapp "hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

const reservationChangedType = "reservation.changed.v1"

// Inbox remembers which event ids were already handled by this consumer.
type Inbox interface {
	// Seen records id and reports whether it had been recorded before.
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type RoomReconciler interface {
	ReconcileRoom(ctx context.Context, roomID string) (room.Status, error)
	ReconcileRoomByKey(ctx context.Context, key booking.RoomKey) (roomsapp.Outcome, error)
}

// BookingEventsHandler reconciles the room named by each reservation.changed
// envelope, so bookings written by other services also move room status.
type BookingEventsHandler struct {
	Inbox      Inbox
	Reconciler RoomReconciler
	Logger     *slog.Logger
}

type bookingEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ReservationID string          `json:"reservation_id"`
		RoomID        string          `json:"room_id"`
		Room          booking.RoomKey `json:"room"`
	} `json:"data"`
}

func (h *BookingEventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env bookingEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.warn("booking event dropped: malformed envelope", "offset", msg.Offset, "error", err)
		return nil
	}
	if env.Type != reservationChangedType || (env.Data.RoomID == "" && env.Data.Room.IsZero()) {
		return nil
	}
	if h.Inbox != nil && env.ID != "" {
		seen, err := h.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	status, err := h.reconcile(ctx, env)
	if errors.Is(err, room.ErrRoomNotFound) {
		h.warn("booking event for unknown room", "event_id", env.ID, "room_id", env.Data.RoomID, "room", env.Data.Room.String())
		return nil
	}
	if err != nil {
		if h.Inbox != nil && env.ID != "" {
			if forgetErr := h.Inbox.Forget(ctx, env.ID); forgetErr != nil {
				err = errors.Join(err, forgetErr)
			}
		}
		return err
	}
	if h.Logger != nil {
		h.Logger.Debug("room reconciled from booking event", "event_id", env.ID, "reservation_id", env.Data.ReservationID, "room_id", env.Data.RoomID, "status", status)
	}
	return nil
}

// reconcile prefers the room id and falls back to the natural key.
func (h *BookingEventsHandler) reconcile(ctx context.Context, env bookingEnvelope) (room.Status, error) {
	if env.Data.RoomID != "" {
		return h.Reconciler.ReconcileRoom(ctx, env.Data.RoomID)
	}
	out, err := h.Reconciler.ReconcileRoomByKey(ctx, env.Data.Room)
	return out.Status, err
}

func (h *BookingEventsHandler) warn(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Warn(msg, args...)
	}
}

var _ MessageHandler = (*BookingEventsHandler)(nil)
