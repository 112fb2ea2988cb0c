package memory

import (
	"context"
	"errors"

	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory hands out units over shared in-memory repositories. It provides no
// isolation; Commit and Rollback only count calls.
type Factory struct {
	ReservationsRepo booking.Repository
	RoomsRepo        room.Repository
	// FailCommit makes every Commit fail.
	FailCommit error
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ReservationsRepo == nil || f.RoomsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{reservations: f.ReservationsRepo, rooms: f.RoomsRepo, readOnly: opts.ReadOnly, failCommit: f.FailCommit}, nil
}

type Unit struct {
	reservations booking.Repository
	rooms        room.Repository
	readOnly     bool
	failCommit   error
	Committed    bool
	RolledBack   bool
}

func (u *Unit) Reservations() booking.Repository { return u.reservations }

func (u *Unit) Rooms() room.Repository { return u.rooms }

func (u *Unit) Commit(ctx context.Context) error {
	if u.failCommit != nil {
		return u.failCommit
	}
	u.Committed = true
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.RolledBack = true
	return nil
}
