package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/domain/availability"
	domain "hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/infra/storage/memory"
)

func march(d int) time.Time { return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC) }

type env struct {
	reservations *memory.ReservationRepository
	rooms        *memory.RoomRepository
	outbox       *memory.Outbox
	service      *Service
}

func newEnv(today time.Time) *env {
	e := &env{
		reservations: memory.NewReservationRepository(),
		rooms:        memory.NewRoomRepository(),
		outbox:       memory.NewOutbox(nil, "", "test"),
	}
	factory := memory.Factory{ReservationsRepo: e.reservations, RoomsRepo: e.rooms}
	now := func() time.Time { return today.Add(9 * time.Hour) }
	seq := 0
	e.service = &Service{
		UoWFactory: factory,
		Outbox:     e.outbox,
		Reconciler: &rooms.Reconciler{UoWFactory: factory, Outbox: e.outbox, Now: now},
		Now:        now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("res-%d", seq)
		},
	}
	e.rooms.Put(room.Room{ID: "r1", Key: domain.NewRoomKey("seaview", "101"), Status: room.StatusAvailable})
	return e
}

func (e *env) create(in, out time.Time) (CreateReservationCommand, CreateReservationHandler) {
	return CreateReservationCommand{Property: "seaview", RoomNumber: "101", RoomID: "r1", CheckIn: in, CheckOut: out, GuestName: " Ada "},
		CreateReservationHandler{e.service}
}

func TestCreateReservation(t *testing.T) {
	e := newEnv(march(12))
	cmd, h := e.create(march(10), march(15))

	out, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "res-1", out.Reservation.ID)
	assert.Equal(t, "pending", out.Reservation.Status)
	assert.Equal(t, "Ada", out.Reservation.GuestName)
	assert.Equal(t, "2025-03-10", out.Reservation.CheckIn)
	assert.Equal(t, "occupied", out.RoomStatus)
	assert.Empty(t, out.Warnings)

	names := make([]string, 0)
	for _, rec := range e.outbox.Pending() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"reservation.changed", "room.status_changed"}, names)
}

func TestCreateReservationRejectsOverlap(t *testing.T) {
	e := newEnv(march(1))
	cmd, h := e.create(march(10), march(15))
	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	cmd, _ = e.create(march(12), march(20))
	_, err = h.Handle(context.Background(), cmd)
	require.ErrorIs(t, err, availability.ErrRangeUnavailable)
	var conflict *availability.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, domain.ReservationID("res-1"), conflict.Conflicts[0].ReservationID)

	pending := e.outbox.Pending()
	assert.Equal(t, "availability.overbooking_prevented", pending[len(pending)-1].Name)

	// Same-day turnover is allowed.
	cmd, _ = e.create(march(15), march(18))
	_, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
}

func TestCreateReservationValidation(t *testing.T) {
	e := newEnv(march(1))
	_, h := e.create(march(10), march(15))
	ctx := context.Background()

	_, err := h.Handle(ctx, CreateReservationCommand{CheckIn: march(10), CheckOut: march(15)})
	assert.ErrorIs(t, err, domain.ErrRoomRequired)

	_, err = h.Handle(ctx, CreateReservationCommand{Property: "seaview", RoomNumber: "101", CheckIn: march(15), CheckOut: march(15)})
	assert.ErrorIs(t, err, availability.ErrInvalidRange)

	_, err = h.Handle(ctx, CreateReservationCommand{Property: "seaview", RoomNumber: "101", CheckIn: march(10), CheckOut: march(15), Status: "cancelled"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateDatesExcludesItself(t *testing.T) {
	e := newEnv(march(1))
	cmd, h := e.create(march(10), march(15))
	created, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	cmd, _ = e.create(march(20), march(25))
	_, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	update := UpdateReservationDatesHandler{e.service}
	out, err := update.Handle(context.Background(), UpdateReservationDatesCommand{
		ReservationID: created.Reservation.ID, CheckIn: march(12), CheckOut: march(17),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-12", out.Reservation.CheckIn)
	assert.Equal(t, "2025-03-17", out.Reservation.CheckOut)

	_, err = update.Handle(context.Background(), UpdateReservationDatesCommand{
		ReservationID: created.Reservation.ID, CheckIn: march(18), CheckOut: march(21),
	})
	require.ErrorIs(t, err, availability.ErrRangeUnavailable)

	_, err = update.Handle(context.Background(), UpdateReservationDatesCommand{ReservationID: "missing", CheckIn: march(1), CheckOut: march(2)})
	require.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestChangeStatusFreesRoom(t *testing.T) {
	e := newEnv(march(12))
	cmd, h := e.create(march(10), march(15))
	created, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "occupied", created.RoomStatus)

	change := ChangeReservationStatusHandler{e.service}
	out, err := change.Handle(context.Background(), ChangeReservationStatusCommand{ReservationID: created.Reservation.ID, Status: "CANCELLED"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Reservation.Status)
	assert.Equal(t, "available", out.RoomStatus)

	_, err = change.Handle(context.Background(), ChangeReservationStatusCommand{ReservationID: created.Reservation.ID, Status: "confirmed"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReconcileFailureIsOnlyAWarning(t *testing.T) {
	e := newEnv(march(12))
	e.rooms.FailWrites = errors.New("read-only replica")
	cmd, h := e.create(march(10), march(15))

	out, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Empty(t, out.RoomStatus)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "read-only replica")

	stored, err := e.reservations.ByID(context.Background(), domain.ReservationID(out.Reservation.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestCreateWithoutRoomIDReconcilesByKey(t *testing.T) {
	e := newEnv(march(12))
	cmd, h := e.create(march(10), march(15))
	cmd.RoomID = ""

	out, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "occupied", out.RoomStatus)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1, e.rooms.Writes())

	stored, err := e.rooms.ByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, stored.Status)
}

func TestCreateForUnknownRoomWarns(t *testing.T) {
	e := newEnv(march(12))
	cmd, h := e.create(march(10), march(15))
	cmd.RoomID = ""
	cmd.RoomNumber = "999"

	out, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Empty(t, out.RoomStatus)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], room.ErrRoomNotFound.Error())
	assert.Zero(t, e.rooms.Writes())
}

func TestDeleteReservationFreesRoom(t *testing.T) {
	e := newEnv(march(12))
	cmd, h := e.create(march(10), march(15))
	created, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "occupied", created.RoomStatus)

	del := DeleteReservationHandler{e.service}
	out, err := del.Handle(context.Background(), DeleteReservationCommand{ReservationID: created.Reservation.ID})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, created.Reservation.ID, out.Reservation.ID)
	assert.Equal(t, "available", out.RoomStatus)

	_, err = e.reservations.ByID(context.Background(), domain.ReservationID(created.Reservation.ID))
	require.ErrorIs(t, err, domain.ErrReservationNotFound)

	pending := e.outbox.Pending()
	require.NotEmpty(t, pending)
	assert.Equal(t, "room.status_changed", pending[len(pending)-1].Name)
	assert.Equal(t, "reservation.changed", pending[len(pending)-2].Name)

	_, err = del.Handle(context.Background(), DeleteReservationCommand{ReservationID: created.Reservation.ID})
	require.ErrorIs(t, err, domain.ErrReservationNotFound)
	_, err = del.Handle(context.Background(), DeleteReservationCommand{})
	require.ErrorIs(t, err, domain.ErrReservationNotFound)

	// The freed nights can be booked again.
	cmd, _ = e.create(march(11), march(13))
	_, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
}
