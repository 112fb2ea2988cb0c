package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	roomsapp "hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/infra/storage/memory"
)

type fakeReconciler struct {
	calls []string
	err   error
}

func (f *fakeReconciler) ReconcileRoom(ctx context.Context, roomID string) (room.Status, error) {
	f.calls = append(f.calls, roomID)
	if f.err != nil {
		return "", f.err
	}
	return room.StatusOccupied, nil
}

func (f *fakeReconciler) ReconcileRoomByKey(ctx context.Context, key booking.RoomKey) (roomsapp.Outcome, error) {
	f.calls = append(f.calls, key.String())
	if f.err != nil {
		return roomsapp.Outcome{}, f.err
	}
	return roomsapp.Outcome{RoomID: "r1", Previous: room.StatusAvailable, Status: room.StatusOccupied}, nil
}

func message(value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "reservation.events.v1", Value: []byte(value)}
}

const changed = `{"id":"ev-1","type":"reservation.changed.v1","data":{"reservation_id":"a1","room_id":"r1"}}`

func TestBookingEventsReconcileOncePerEvent(t *testing.T) {
	rec := &fakeReconciler{}
	h := &BookingEventsHandler{Inbox: memory.NewInbox(), Reconciler: rec}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, message(changed)))
	require.NoError(t, h.Handle(ctx, message(changed)))
	assert.Equal(t, []string{"r1"}, rec.calls)
}

func TestBookingEventsIgnoresOtherMessages(t *testing.T) {
	rec := &fakeReconciler{}
	h := &BookingEventsHandler{Inbox: memory.NewInbox(), Reconciler: rec}
	ctx := context.Background()

	for _, raw := range []string{
		`not json`,
		`{"id":"ev-2","type":"room.status_changed.v1","data":{"room_id":"r1"}}`,
		`{"id":"ev-3","type":"reservation.changed.v1","data":{"reservation_id":"a1"}}`,
	} {
		require.NoError(t, h.Handle(ctx, message(raw)))
	}
	assert.Empty(t, rec.calls)
}

func TestBookingEventsFallBackToRoomKey(t *testing.T) {
	rec := &fakeReconciler{}
	h := &BookingEventsHandler{Inbox: memory.NewInbox(), Reconciler: rec}

	raw := `{"id":"ev-4","type":"reservation.changed.v1","data":{"reservation_id":"a1","room":{"property":"seaview","room_number":"101"}}}`
	require.NoError(t, h.Handle(context.Background(), message(raw)))
	assert.Equal(t, []string{"seaview/101"}, rec.calls)
}

func TestBookingEventsRetryAfterFailure(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("store down")}
	h := &BookingEventsHandler{Inbox: memory.NewInbox(), Reconciler: rec}
	ctx := context.Background()

	require.Error(t, h.Handle(ctx, message(changed)))
	rec.err = nil
	require.NoError(t, h.Handle(ctx, message(changed)))
	assert.Equal(t, []string{"r1", "r1"}, rec.calls)
}

func TestBookingEventsUnknownRoomIsDropped(t *testing.T) {
	rec := &fakeReconciler{err: room.ErrRoomNotFound}
	h := &BookingEventsHandler{Reconciler: rec}

	assert.NoError(t, h.Handle(context.Background(), message(changed)))
}

func TestRecordHeadersAreSorted(t *testing.T) {
	hs := recordHeaders(map[string]string{"content-type": "application/cloudevents+json", "ce-id": "1"})
	require.Len(t, hs, 2)
	assert.Equal(t, "ce-id", string(hs[0].Key))
	assert.Equal(t, "content-type", string(hs[1].Key))
}
