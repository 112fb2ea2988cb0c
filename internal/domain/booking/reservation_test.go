package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoteldesk/internal/domain/shared/daterange"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{raw: "pending", want: StatusPending},
		{raw: "CONFIRMED", want: StatusConfirmed},
		{raw: "checked_in", want: StatusCheckedIn},
		{raw: " checked-out ", want: StatusCheckedOut},
		{raw: "Cancelled", want: StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStatus("no-show")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestIsBlocking(t *testing.T) {
	assert.True(t, StatusPending.IsBlocking())
	assert.True(t, StatusConfirmed.IsBlocking())
	assert.True(t, StatusCheckedIn.IsBlocking())
	assert.False(t, StatusCheckedOut.IsBlocking())
	assert.False(t, StatusCancelled.IsBlocking())
	assert.False(t, Status("archived").IsBlocking())
	assert.Equal(t, []Status{StatusPending, StatusConfirmed, StatusCheckedIn}, BlockingStatuses())
}

func TestToInterval(t *testing.T) {
	iv, err := ToInterval(Reservation{ID: "a1", CheckIn: day(2024, 3, 10), CheckOut: day(2024, 3, 15), Status: StatusConfirmed})
	require.NoError(t, err)
	assert.True(t, iv.Blocking)
	assert.True(t, iv.ContainsDate(day(2024, 3, 14)))
	assert.False(t, iv.ContainsDate(day(2024, 3, 15)))

	tests := []struct {
		name string
		res  Reservation
	}{
		{name: "zero nights", res: Reservation{ID: "z", CheckIn: day(2024, 3, 10), CheckOut: day(2024, 3, 10)}},
		{name: "reversed", res: Reservation{ID: "r", CheckIn: day(2024, 3, 12), CheckOut: day(2024, 3, 10)}},
		{name: "missing checkin", res: Reservation{ID: "m", CheckOut: day(2024, 3, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToInterval(tt.res)
			assert.ErrorIs(t, err, ErrInvalidInterval)
			var ie *InvalidIntervalError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.res.ID, ie.ReservationID)
		})
	}
}

func TestNewReservation(t *testing.T) {
	dr, err := daterange.New(day(2024, 3, 10), day(2024, 3, 15))
	require.NoError(t, err)

	r, err := NewReservation(NewParams{ID: "a1", Room: NewRoomKey("seaview", "101"), Range: dr, Now: day(2024, 3, 1)})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Len(t, r.PendingEvents(), 1)

	_, err = NewReservation(NewParams{ID: "a2", Room: NewRoomKey("seaview", ""), Range: dr})
	assert.ErrorIs(t, err, ErrRoomRequired)

	_, err = NewReservation(NewParams{ID: "a3", Room: NewRoomKey("seaview", "101"), Range: dr, Status: StatusCancelled})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition(t *testing.T) {
	r := &Reservation{ID: "a1", Status: StatusPending, CheckIn: day(2024, 3, 10), CheckOut: day(2024, 3, 12)}
	now := day(2024, 3, 10)

	require.NoError(t, r.Transition(StatusConfirmed, now))
	require.NoError(t, r.Transition(StatusCheckedIn, now))
	assert.ErrorIs(t, r.Transition(StatusCancelled, now), ErrInvalidTransition)
	require.NoError(t, r.Transition(StatusCheckedOut, now))
	assert.ErrorIs(t, r.Transition(StatusCheckedIn, now), ErrInvalidTransition)
	assert.Len(t, r.Drain(), 3)
}

func TestReschedule(t *testing.T) {
	r := &Reservation{ID: "a1", Status: StatusConfirmed, CheckIn: day(2024, 3, 10), CheckOut: day(2024, 3, 12)}
	dr, err := daterange.New(day(2024, 3, 11), day(2024, 3, 14))
	require.NoError(t, err)

	require.NoError(t, r.Reschedule(dr, day(2024, 3, 1)))
	assert.Equal(t, day(2024, 3, 11), r.CheckIn)

	r.Status = StatusCancelled
	assert.ErrorIs(t, r.Reschedule(dr, day(2024, 3, 1)), ErrInvalidTransition)
	assert.ErrorIs(t, r.Reschedule(daterange.DateRange{}, day(2024, 3, 1)), daterange.ErrInvalidRange)
}

func TestRemoveRecordsDeletion(t *testing.T) {
	r := &Reservation{ID: "a1", Room: NewRoomKey("seaview", "101"), RoomID: "r1", Status: StatusConfirmed, CheckIn: day(2024, 3, 10), CheckOut: day(2024, 3, 12)}

	r.Remove(day(2024, 3, 9))
	evs := r.Drain()
	require.Len(t, evs, 1)
	changed, ok := evs[0].(ReservationChanged)
	require.True(t, ok)
	assert.True(t, changed.Deleted)
	assert.Equal(t, "r1", changed.RoomID)
	assert.Equal(t, day(2024, 3, 10), changed.Range.CheckIn)
}
