package rooms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/daterange"
	"hoteldesk/internal/domain/shared/events"
	"hoteldesk/internal/infra/storage/memory"
)

var room101 = booking.NewRoomKey("seaview", "101")

func march(d int) time.Time { return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC) }

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, ev events.DomainEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type fixture struct {
	reservations *memory.ReservationRepository
	rooms        *memory.RoomRepository
	outbox       *memory.Outbox
	notifier     *recordingNotifier
	reconciler   *Reconciler
}

func newFixture(t *testing.T, today time.Time, roomRepo room.Repository) *fixture {
	t.Helper()
	f := &fixture{
		reservations: memory.NewReservationRepository(),
		rooms:        memory.NewRoomRepository(),
		outbox:       memory.NewOutbox(nil, "", "test"),
		notifier:     &recordingNotifier{},
	}
	if roomRepo == nil {
		roomRepo = f.rooms
	}
	f.reconciler = &Reconciler{
		UoWFactory: memory.Factory{ReservationsRepo: f.reservations, RoomsRepo: roomRepo},
		Outbox:     f.outbox,
		Notifier:   f.notifier,
		Now:        func() time.Time { return today.Add(10 * time.Hour) },
	}
	return f
}

func (f *fixture) book(t *testing.T, id string, key booking.RoomKey, in, out time.Time, status booking.Status) {
	t.Helper()
	dr, err := daterange.New(in, out)
	require.NoError(t, err)
	res, err := booking.NewReservation(booking.NewParams{ID: booking.ReservationID(id), Room: key, Range: dr, Now: in})
	require.NoError(t, err)
	res.Status = status
	require.NoError(t, f.reservations.Save(context.Background(), res))
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	ctx := context.Background()

	status, err := f.reconciler.ReconcileRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, status)
	assert.Equal(t, 1, f.rooms.Writes())

	status, err = f.reconciler.ReconcileRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, status)
	assert.Equal(t, 1, f.rooms.Writes(), "unchanged status must not be written again")

	require.Len(t, f.outbox.Pending(), 1)
	assert.Equal(t, "room.status_changed", f.outbox.Pending()[0].Name)
	require.Len(t, f.notifier.events, 1)
}

func TestReconcileFreesRoomOnCheckoutDay(t *testing.T) {
	f := newFixture(t, march(15), nil)
	f.book(t, "a1", room101, march(10), march(15), booking.StatusCheckedIn)

	status, err := f.reconciler.Reconcile(context.Background(), "r1", room101, room.StatusOccupied)
	// r1 is not stored, so the write fails after the decision.
	var writeErr *StatusWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, room.StatusAvailable, writeErr.Target)
	assert.Equal(t, room.StatusOccupied, status)

	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusOccupied})
	status, err = f.reconciler.Reconcile(context.Background(), "r1", room101, room.StatusOccupied)
	require.NoError(t, err)
	assert.Equal(t, room.StatusAvailable, status)
}

func TestReconcileIgnoresNonBlockingReservations(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "c1", room101, march(10), march(15), booking.StatusCancelled)

	status, err := f.reconciler.ReconcileRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusAvailable, status)
	assert.Zero(t, f.rooms.Writes())
}

func TestReconcileKeepsManualStates(t *testing.T) {
	for _, manual := range []room.Status{room.StatusMaintenance, room.StatusCleaning} {
		t.Run(string(manual), func(t *testing.T) {
			f := newFixture(t, march(12), nil)
			f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: manual})
			f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
			f.reservations.FailReads = errors.New("must not be read")

			status, err := f.reconciler.ReconcileRoom(context.Background(), "r1")
			require.NoError(t, err)
			assert.Equal(t, manual, status)
			assert.Zero(t, f.rooms.Writes())
		})
	}
}

func TestReconcileWriteFailure(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	f.rooms.FailWrites = errors.New("disk full")

	status, err := f.reconciler.ReconcileRoom(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatusWrite))
	var writeErr *StatusWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, room.StatusOccupied, writeErr.Target)
	assert.Equal(t, room.StatusAvailable, status)
	assert.Empty(t, f.outbox.Pending())
	assert.Empty(t, f.notifier.events)
}

func TestReconcileFetchFailure(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.reservations.FailReads = errors.New("timeout")

	status, err := f.reconciler.ReconcileRoom(context.Background(), "r1")
	require.ErrorIs(t, err, availability.ErrDataFetch)
	assert.Equal(t, room.StatusAvailable, status)
	assert.Zero(t, f.rooms.Writes())
}

func TestReconcileUsesHotelLocalToday(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusOccupied})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusCheckedIn)
	// 23:30 UTC on the 14th is already the 15th two hours east.
	f.reconciler.Now = func() time.Time { return time.Date(2025, time.March, 14, 23, 30, 0, 0, time.UTC) }
	f.reconciler.Location = time.FixedZone("EET", 2*60*60)

	assert.Equal(t, march(15), f.reconciler.Today())
	status, err := f.reconciler.ReconcileRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusAvailable, status)
}

type flakyRooms struct {
	*memory.RoomRepository
	failID string
}

func (r flakyRooms) UpdateStatus(ctx context.Context, id string, status room.Status, at time.Time) error {
	if id == r.failID {
		return errors.New("replica unavailable")
	}
	return r.RoomRepository.UpdateStatus(ctx, id, status, at)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	base := memory.NewRoomRepository()
	f := newFixture(t, march(12), flakyRooms{RoomRepository: base, failID: "r2"})
	room102 := booking.NewRoomKey("seaview", "102")
	room103 := booking.NewRoomKey("seaview", "103")
	base.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	base.Put(room.Room{ID: "r2", Key: room102, Status: room.StatusAvailable})
	base.Put(room.Room{ID: "r3", Key: room103, Status: room.StatusAvailable})
	base.Put(room.Room{ID: "r4", Key: booking.NewRoomKey("seaview", "104"), Status: room.StatusMaintenance})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	f.book(t, "a2", room102, march(11), march(13), booking.StatusPending)
	f.book(t, "a3", room103, march(12), march(14), booking.StatusConfirmed)

	report, err := (&SweepRoomsHandler{Reconciler: f.reconciler}).Handle(context.Background(), SweepRoomsCommand{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rooms)
	assert.Equal(t, 2, report.Changed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)

	r3, err := base.ByID(context.Background(), "r3")
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, r3.Status)
}

func TestReconcileRoomCommand(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	h := &ReconcileRoomHandler{Reconciler: f.reconciler}
	ctx := context.Background()

	_, err := h.Handle(ctx, ReconcileRoomCommand{})
	require.ErrorIs(t, err, ErrRoomIDRequired)

	_, err = h.Handle(ctx, ReconcileRoomCommand{RoomID: "r1", Property: "seaview", RoomNumber: "101", CurrentStatus: "dusty"})
	require.ErrorIs(t, err, room.ErrUnknownStatus)

	out, err := h.Handle(ctx, ReconcileRoomCommand{RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "occupied", out.Status)
	assert.True(t, out.Changed)

	out, err = h.Handle(ctx, ReconcileRoomCommand{RoomID: "r1", Property: "seaview", RoomNumber: "101", CurrentStatus: "occupied"})
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, f.rooms.Writes())
}

func TestReconcileNotifiesOnlyAfterCommit(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	commitErr := errors.New("commit refused")
	f.reconciler.UoWFactory = memory.Factory{ReservationsRepo: f.reservations, RoomsRepo: f.rooms, FailCommit: commitErr}
	ctx := context.Background()

	_, err := f.reconciler.ReconcileRoom(ctx, "r1")
	require.ErrorIs(t, err, commitErr)
	assert.Empty(t, f.notifier.events)

	_, err = f.reconciler.Reconcile(ctx, "r1", room101, room.StatusAvailable)
	require.ErrorIs(t, err, commitErr)
	assert.Empty(t, f.notifier.events)

	f.reconciler.UoWFactory = memory.Factory{ReservationsRepo: f.reservations, RoomsRepo: f.rooms}
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	status, err := f.reconciler.ReconcileRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room.StatusOccupied, status)
	require.Len(t, f.notifier.events, 1)
	changed, ok := f.notifier.events[0].(room.StatusChanged)
	require.True(t, ok)
	assert.Equal(t, room.StatusOccupied, changed.To)
}

func TestReconcileRoomByKey(t *testing.T) {
	f := newFixture(t, march(12), nil)
	f.rooms.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)
	ctx := context.Background()

	out, err := f.reconciler.ReconcileRoomByKey(ctx, room101)
	require.NoError(t, err)
	assert.Equal(t, "r1", out.RoomID)
	assert.Equal(t, room.StatusAvailable, out.Previous)
	assert.Equal(t, room.StatusOccupied, out.Status)
	assert.True(t, out.Changed())

	_, err = f.reconciler.ReconcileRoomByKey(ctx, booking.NewRoomKey("seaview", "999"))
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

type countingRooms struct {
	*memory.RoomRepository
	loads *int
}

func (r countingRooms) ByID(ctx context.Context, id string) (*room.Room, error) {
	*r.loads++
	return r.RoomRepository.ByID(ctx, id)
}

func TestReconcileRoomCommandLoadsRoomOnce(t *testing.T) {
	base := memory.NewRoomRepository()
	loads := 0
	f := newFixture(t, march(12), countingRooms{RoomRepository: base, loads: &loads})
	base.Put(room.Room{ID: "r1", Key: room101, Status: room.StatusAvailable})
	f.book(t, "a1", room101, march(10), march(15), booking.StatusConfirmed)

	out, err := (&ReconcileRoomHandler{Reconciler: f.reconciler}).Handle(context.Background(), ReconcileRoomCommand{RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "occupied", out.Status)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, loads)
	assert.True(t, ReconcileRoomCommand{}.SelfCommitting())
}
