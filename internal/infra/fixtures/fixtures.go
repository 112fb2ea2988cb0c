// Package fixtures seeds rooms and reservations from a JSON file at startup.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/daterange"
)

type File struct {
	Rooms        []roomFixture        `json:"rooms"`
	Reservations []reservationFixture `json:"reservations"`
}

type roomFixture struct {
	ID         string `json:"id"`
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
	Status     string `json:"status"`
}

type reservationFixture struct {
	ID         string `json:"id"`
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
	RoomID     string `json:"room_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
	GuestName  string `json:"guest_name"`
}

type RoomWriter interface {
	Upsert(ctx context.Context, rm room.Room) error
}

type ReservationWriter interface {
	Save(ctx context.Context, res *booking.Reservation) error
}

type Target struct {
	Rooms        RoomWriter
	Reservations ReservationWriter
}

type Report struct {
	Rooms        int
	Reservations int
	Skipped      int
}

// Load reads the fixture file. A missing or empty file yields an empty File.
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return f, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// Seed writes every valid entry. Invalid entries are logged and skipped, so one
// bad line does not keep the desk from starting.
func Seed(ctx context.Context, f File, t Target, now time.Time, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep Report
	for _, fx := range f.Rooms {
		rm, err := fx.room(now)
		if err != nil {
			logger.Error("room fixture invalid", "room_id", fx.ID, "error", err)
			rep.Skipped++
			continue
		}
		if err := t.Rooms.Upsert(ctx, rm); err != nil {
			return rep, fmt.Errorf("store room fixture %s: %w", fx.ID, err)
		}
		rep.Rooms++
	}
	for _, fx := range f.Reservations {
		res, err := fx.reservation(now)
		if err != nil {
			logger.Error("reservation fixture invalid", "reservation_id", fx.ID, "error", err)
			rep.Skipped++
			continue
		}
		if err := t.Reservations.Save(ctx, res); err != nil {
			return rep, fmt.Errorf("store reservation fixture %s: %w", fx.ID, err)
		}
		rep.Reservations++
	}
	logger.Info("fixtures imported", "rooms", rep.Rooms, "reservations", rep.Reservations, "skipped", rep.Skipped)
	return rep, nil
}

func (fx roomFixture) room(now time.Time) (room.Room, error) {
	key := booking.NewRoomKey(fx.Property, fx.RoomNumber)
	if fx.ID == "" || key.IsZero() {
		return room.Room{}, booking.ErrRoomRequired
	}
	status := room.StatusAvailable
	if fx.Status != "" {
		var err error
		if status, err = room.ParseStatus(fx.Status); err != nil {
			return room.Room{}, err
		}
	}
	return room.Room{ID: fx.ID, Key: key, Status: status, UpdatedAt: now.UTC()}, nil
}

// reservation builds the record directly so historical statuses such as
// cancelled or checked-out can be seeded.
func (fx reservationFixture) reservation(now time.Time) (*booking.Reservation, error) {
	key := booking.NewRoomKey(fx.Property, fx.RoomNumber)
	if fx.ID == "" || key.IsZero() {
		return nil, booking.ErrRoomRequired
	}
	in, err := daterange.ParseDate(fx.CheckIn)
	if err != nil {
		return nil, err
	}
	out, err := daterange.ParseDate(fx.CheckOut)
	if err != nil {
		return nil, err
	}
	dr, err := daterange.New(in, out)
	if err != nil {
		return nil, err
	}
	status := booking.StatusConfirmed
	if fx.Status != "" {
		if status, err = booking.ParseStatus(fx.Status); err != nil {
			return nil, err
		}
	}
	return &booking.Reservation{
		ID:        booking.ReservationID(fx.ID),
		Room:      key,
		RoomID:    fx.RoomID,
		CheckIn:   dr.CheckIn,
		CheckOut:  dr.CheckOut,
		Status:    status,
		GuestName: fx.GuestName,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}
