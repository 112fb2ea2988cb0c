// Package postgres stores reservations and rooms in PostgreSQL. An exclusion
// constraint refuses overlapping blocking stays of one room at write time.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"hoteldesk/internal/domain/availability"
)

const (
	exclusionViolation = "23P01"
	overlapConstraint  = "reservations_no_overlap"
)

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS rooms (
	id           TEXT PRIMARY KEY,
	property_key TEXT NOT NULL,
	room_number  TEXT NOT NULL,
	status       TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (property_key, room_number)
);

CREATE TABLE IF NOT EXISTS reservations (
	id           TEXT PRIMARY KEY,
	property_key TEXT NOT NULL,
	room_number  TEXT NOT NULL,
	room_id      TEXT NOT NULL DEFAULT '',
	check_in     DATE NOT NULL,
	check_out    DATE NOT NULL,
	status       TEXT NOT NULL,
	guest_name   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	CHECK (check_out > check_in)
);

CREATE INDEX IF NOT EXISTS reservations_room_idx ON reservations (property_key, room_number, check_in);

DO $$
BEGIN
	ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
		EXCLUDE USING gist (
			property_key WITH =,
			room_number WITH =,
			daterange(check_in, check_out, '[)') WITH &&
		) WHERE (status IN ('pending', 'confirmed', 'checked-in'));
EXCEPTION
	WHEN duplicate_object OR duplicate_table THEN NULL;
END $$;
`

// Migrate creates the schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// conn returns the transaction bound to ctx, falling back to db.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// mapWriteError turns an exclusion violation into the availability conflict error.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
		return fmt.Errorf("%w: %s", availability.ErrRangeUnavailable, pqErr.Constraint)
	}
	return err
}
