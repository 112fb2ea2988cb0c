package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func march(d int) time.Time { return day(2024, 3, d) }

func res(id string, in, out time.Time, status booking.Status) booking.Reservation {
	return booking.Reservation{ID: booking.ReservationID(id), Room: booking.NewRoomKey("seaview", "101"), CheckIn: in, CheckOut: out, Status: status}
}

func TestBuild(t *testing.T) {
	idx, report := Build([]booking.Reservation{
		res("late", march(20), march(22), booking.StatusPending),
		res("early", march(1), march(3), booking.StatusConfirmed),
		res("gone", march(5), march(8), booking.StatusCancelled),
		res("left", march(5), march(8), booking.StatusCheckedOut),
		res("broken", march(9), march(9), booking.StatusConfirmed),
		res("self", march(10), march(12), booking.StatusCheckedIn),
	}, "self")

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 2, report.Retained)
	assert.Equal(t, 1, report.Excluded)
	assert.Equal(t, 2, report.NonBlocking)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0], booking.ErrInvalidInterval)
	assert.Equal(t, booking.ReservationID("early"), idx.intervals[0].ReservationID)
}

func TestIsDateOccupied(t *testing.T) {
	idx, _ := Build([]booking.Reservation{res("a1", march(10), march(15), booking.StatusConfirmed)}, "")

	tests := []struct {
		date time.Time
		want bool
	}{
		{date: march(9), want: false},
		{date: march(10), want: true},
		{date: march(14), want: true},
		{date: time.Date(2024, 3, 14, 22, 0, 0, 0, time.UTC), want: true},
		{date: march(15), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format(time.RFC3339), func(t *testing.T) {
			assert.Equal(t, tt.want, idx.IsDateOccupied(tt.date))
		})
	}
}

func TestIsRangeAvailable(t *testing.T) {
	idx, _ := Build([]booking.Reservation{
		res("a1", march(10), march(15), booking.StatusConfirmed),
		res("c1", march(18), march(25), booking.StatusCancelled),
	}, "")

	tests := []struct {
		name     string
		from, to time.Time
		want     bool
	}{
		{name: "ends on checkin day", from: march(5), to: march(10), want: true},
		{name: "starts on checkout day", from: march(15), to: march(18), want: true},
		{name: "exact overlap", from: march(10), to: march(15), want: false},
		{name: "strict subset", from: march(11), to: march(14), want: false},
		{name: "superset", from: march(1), to: march(30), want: false},
		{name: "tail overlap", from: march(12), to: march(20), want: false},
		{name: "over cancelled booking", from: march(18), to: march(25), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.IsRangeAvailable(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := idx.IsRangeAvailable(march(10), march(10))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = idx.IsRangeAvailable(march(12), march(10))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestIsRangeAvailableLongRanges(t *testing.T) {
	idx, _ := Build([]booking.Reservation{
		res("far", day(2031, 6, 1), day(2031, 6, 4), booking.StatusPending),
	}, "")

	ok, err := idx.IsRangeAvailable(day(2024, 1, 1), day(2031, 6, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.IsRangeAvailable(day(2024, 1, 1), day(2040, 1, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNestedIntervalsUseRunningReach(t *testing.T) {
	// A long stay swallowing a short one: the short one sorts later but ends earlier.
	idx, _ := Build([]booking.Reservation{
		res("long", march(1), march(30), booking.StatusConfirmed),
		res("short", march(5), march(7), booking.StatusConfirmed),
	}, "")

	assert.True(t, idx.IsDateOccupied(march(20)))
	ok, err := idx.IsRangeAvailable(march(25), march(28))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilIndexIsEmpty(t *testing.T) {
	var idx *Index
	assert.False(t, idx.IsDateOccupied(march(10)))
	ok, err := idx.IsRangeAvailable(march(10), march(12))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, idx.Conflicts(daterange.DateRange{CheckIn: march(1), CheckOut: march(2)}))
	assert.Equal(t, march(3), idx.NextFree(march(3)))
}

func TestConflicts(t *testing.T) {
	idx, _ := Build([]booking.Reservation{
		res("a1", march(10), march(15), booking.StatusConfirmed),
		res("a2", march(15), march(17), booking.StatusPending),
		res("a3", march(20), march(22), booking.StatusPending),
	}, "")

	got := idx.Conflicts(daterange.DateRange{CheckIn: march(12), CheckOut: march(16)})
	require.Len(t, got, 2)
	assert.Equal(t, booking.ReservationID("a1"), got[0].ReservationID)
	assert.Equal(t, daterange.DateRange{CheckIn: march(12), CheckOut: march(15)}, got[0].Overlap)
	assert.Equal(t, daterange.DateRange{CheckIn: march(15), CheckOut: march(16)}, got[1].Overlap)
}

func TestNextFreeAndBlocked(t *testing.T) {
	idx, _ := Build([]booking.Reservation{
		res("a1", march(10), march(15), booking.StatusConfirmed),
		res("a2", march(15), march(17), booking.StatusPending),
		res("a3", march(20), march(22), booking.StatusPending),
	}, "")

	assert.Equal(t, march(17), idx.NextFree(march(11)))
	assert.Equal(t, march(18), idx.NextFree(march(18)))
	assert.Equal(t, []daterange.DateRange{
		{CheckIn: march(10), CheckOut: march(17)},
		{CheckIn: march(20), CheckOut: march(22)},
	}, idx.Blocked())
}
