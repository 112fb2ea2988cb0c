package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/infra/storage/memory"
)

const sample = `{
  "rooms": [
    {"id": "r1", "property": "seaview", "room_number": "101"},
    {"id": "r2", "property": "seaview", "room_number": "102", "status": "maintenance"},
    {"id": "", "property": "seaview", "room_number": "103"}
  ],
  "reservations": [
    {"id": "b1", "property": "seaview", "room_number": "101", "room_id": "r1", "check_in": "2025-03-10", "check_out": "2025-03-15"},
    {"id": "b2", "property": "seaview", "room_number": "101", "room_id": "r1", "check_in": "2025-02-01", "check_out": "2025-02-03", "status": "checked_out"},
    {"id": "b3", "property": "seaview", "room_number": "101", "check_in": "2025-03-15", "check_out": "2025-03-10"}
  ]
}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAndSeed(t *testing.T) {
	f, err := Load(writeFile(t, sample))
	require.NoError(t, err)

	rooms := memory.NewRoomRepository()
	reservations := memory.NewReservationRepository()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rep, err := Seed(context.Background(), f, Target{Rooms: rooms, Reservations: reservations}, now, nil)
	require.NoError(t, err)
	assert.Equal(t, Report{Rooms: 2, Reservations: 2, Skipped: 2}, rep)

	r2, err := rooms.ByID(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, room.StatusMaintenance, r2.Status)

	b2, err := reservations.ByID(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCheckedOut, b2.Status)
	b1, err := reservations.ByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, b1.Status)
	assert.Equal(t, "2025-03-15", b1.CheckOut.Format("2006-01-02"))
}

func TestLoadMissingOrEmptyFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, f.Rooms)

	f, err = Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Empty(t, f.Reservations)

	f, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, f.Rooms)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(writeFile(t, "{rooms"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode fixtures")
}
