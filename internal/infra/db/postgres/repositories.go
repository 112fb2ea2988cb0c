package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/daterange"
)

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, property_key, room_number, room_id, check_in, check_out, status, guest_name, created_at, updated_at`

// ForRoom only loads reservations that still hold the room.
func (r *ReservationRepository) ForRoom(ctx context.Context, key booking.RoomKey) ([]booking.Reservation, error) {
	statuses := make([]string, 0, 3)
	for _, s := range booking.BlockingStatuses() {
		statuses = append(statuses, string(s))
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE property_key = $1 AND room_number = $2 AND status = ANY($3)
		 ORDER BY check_in`,
		key.PropertyKey, key.RoomNumber, pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]booking.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) ByID(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, string(id))
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *booking.Reservation) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			status = EXCLUDED.status,
			guest_name = EXCLUDED.guest_name,
			updated_at = EXCLUDED.updated_at`,
		string(res.ID), res.Room.PropertyKey, res.Room.RoomNumber, res.RoomID,
		res.CheckIn.Format(daterange.DateLayout), res.CheckOut.Format(daterange.DateLayout),
		string(res.Status), res.GuestName, res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	return mapWriteError(err)
}

func (r *ReservationRepository) Delete(ctx context.Context, id booking.ReservationID) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrReservationNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(s scanner) (booking.Reservation, error) {
	var (
		res    booking.Reservation
		id     string
		status string
	)
	err := s.Scan(&id, &res.Room.PropertyKey, &res.Room.RoomNumber, &res.RoomID,
		&res.CheckIn, &res.CheckOut, &status, &res.GuestName, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return booking.Reservation{}, err
	}
	res.ID = booking.ReservationID(id)
	res.CheckIn = daterange.Day(res.CheckIn)
	res.CheckOut = daterange.Day(res.CheckOut)
	res.Status = booking.Status(status)
	if parsed, err := booking.ParseStatus(status); err == nil {
		res.Status = parsed
	}
	return res, nil
}

type RoomRepository struct {
	db *sql.DB
}

func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) ByID(ctx context.Context, id string) (*room.Room, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, property_key, room_number, status, updated_at FROM rooms WHERE id = $1`, id)
	rm, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) ByKey(ctx context.Context, key booking.RoomKey) (*room.Room, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, property_key, room_number, status, updated_at FROM rooms WHERE property_key = $1 AND room_number = $2`,
		key.PropertyKey, key.RoomNumber)
	rm, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]room.Room, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id, property_key, room_number, status, updated_at FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []room.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *RoomRepository) UpdateStatus(ctx context.Context, id string, status room.Status, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE rooms SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return room.ErrRoomNotFound
	}
	return nil
}

// Upsert stores the full room row; used when seeding fixtures.
func (r *RoomRepository) Upsert(ctx context.Context, rm room.Room) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO rooms (id, property_key, room_number, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			property_key = EXCLUDED.property_key,
			room_number = EXCLUDED.room_number,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		rm.ID, rm.Key.PropertyKey, rm.Key.RoomNumber, string(rm.Status), rm.UpdatedAt.UTC())
	return err
}

func scanRoom(s scanner) (room.Room, error) {
	var (
		rm     room.Room
		status string
	)
	if err := s.Scan(&rm.ID, &rm.Key.PropertyKey, &rm.Key.RoomNumber, &status, &rm.UpdatedAt); err != nil {
		return room.Room{}, err
	}
	rm.Status = room.Status(status)
	if parsed, err := room.ParseStatus(status); err == nil {
		rm.Status = parsed
	}
	return rm, nil
}

var (
	_ booking.Repository = (*ReservationRepository)(nil)
	_ room.Repository    = (*RoomRepository)(nil)
)
