package uow

import (
	"context"
	"errors"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork groups the repositories touched by one command or query.
type UnitOfWork interface {
	Reservations() booking.Repository
	Rooms() room.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// contextInjector is implemented by units that carry a driver session in the context.
type contextInjector interface {
	InjectContext(context.Context) context.Context
}

// Join returns the unit already bound to ctx, or begins one. The returned finish
// func commits on success (unless read-only) and rolls back otherwise; it is a
// no-op when the unit was inherited from the context.
func Join(ctx context.Context, factory Factory, opts TxOptions) (UnitOfWork, context.Context, func(*error), error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, func(*error) {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(contextInjector); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = ContextWithUnitOfWork(execCtx, unit)
	finish := func(errp *error) {
		if opts.ReadOnly || errp == nil || *errp != nil {
			_ = unit.Rollback(execCtx)
			return
		}
		if err := unit.Commit(execCtx); err != nil {
			*errp = err
		}
	}
	return unit, execCtx, finish, nil
}

// Detach returns ctx without its unit of work, for follow-up work that must run
// after the current unit has been committed.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, UnitOfWork(nil))
}
