package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

// Factory opens one SQL transaction per unit of work. Repositories pick the
// transaction up from the context injected by the unit.
type Factory struct {
	DB *sql.DB

	ReservationsRepo booking.Repository
	RoomsRepo        room.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx, err := f.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, reservations: f.ReservationsRepo, rooms: f.RoomsRepo}, nil
}

type Unit struct {
	tx *sql.Tx

	reservations booking.Repository
	rooms        room.Repository
}

func (u *Unit) Reservations() booking.Repository { return u.reservations }

func (u *Unit) Rooms() room.Repository { return u.rooms }

func (u *Unit) Commit(ctx context.Context) error {
	return mapWriteError(u.tx.Commit())
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return withTx(ctx, u.tx)
}
