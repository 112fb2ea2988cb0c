package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hoteldesk/internal/app/dto"
	"hoteldesk/internal/app/handlers/rooms"
	"hoteldesk/internal/app/outbox"
	"hoteldesk/internal/app/policies"
	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/availability"
	domain "hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/events"
)

// Service runs booking mutations: check against the overlap policy, save, stage
// events, commit, then reconcile the room outside the committed unit.
type Service struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Reconciler *rooms.Reconciler
	Notifier   policies.Notifier
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() domain.ReservationID {
	if s.NewID != nil {
		return domain.ReservationID(s.NewID())
	}
	return domain.ReservationID(uuid.NewString())
}

type mutation func(ctx context.Context, unit uow.UnitOfWork) (*domain.Reservation, error)

// persist writes the mutated reservation back to the repository.
type persist func(ctx context.Context, repo domain.Repository, res *domain.Reservation) error

func save(ctx context.Context, repo domain.Repository, res *domain.Reservation) error {
	return repo.Save(ctx, res)
}

func remove(ctx context.Context, repo domain.Repository, res *domain.Reservation) error {
	return repo.Delete(ctx, res.ID)
}

func (s *Service) apply(ctx context.Context, mutate mutation, store persist) (*dto.ReservationResult, error) {
	res, evs, err := s.commit(ctx, mutate, store)
	if err != nil {
		s.refused(ctx, err)
		return nil, err
	}
	result := &dto.ReservationResult{Reservation: dto.MapReservation(res)}
	s.followUp(uow.Detach(ctx), res, evs, result)
	return result, nil
}

func (s *Service) commit(ctx context.Context, mutate mutation, store persist) (res *domain.Reservation, evs []events.DomainEvent, err error) {
	unit, execCtx, finish, err := uow.Join(ctx, s.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer finish(&err)
	res, err = mutate(execCtx, unit)
	if err != nil {
		return nil, nil, err
	}
	evs = res.Drain()
	if err = store(execCtx, unit.Reservations(), res); err != nil {
		return nil, nil, err
	}
	if err = outbox.Append(execCtx, s.Outbox, evs); err != nil {
		return nil, nil, err
	}
	return res, evs, nil
}

// refused stages an OverbookingPrevented event for a conflicting attempt. The
// attempt's own unit was rolled back, so the event is staged on its own.
func (s *Service) refused(ctx context.Context, err error) {
	var conflict *availability.ConflictError
	if !errors.As(err, &conflict) {
		return
	}
	key := conflict.Room
	ev := availability.OverbookingPreventedEvent(key, conflict.Range, conflict.Conflicts, s.now())
	if appendErr := outbox.Append(uow.Detach(ctx), s.Outbox, []events.DomainEvent{ev}); appendErr != nil && s.Logger != nil {
		s.Logger.Warn("overbooking event not staged", "room", key.String(), "error", appendErr)
	}
	if s.Logger != nil {
		s.Logger.Info("overbooking prevented", "room", key.String(), "range", conflict.Range.String(), "conflicts", len(conflict.Conflicts))
	}
}

// followUp notifies dashboards and reconciles the room. Failures become
// warnings on the result and never undo the committed reservation.
func (s *Service) followUp(ctx context.Context, res *domain.Reservation, evs []events.DomainEvent, result *dto.ReservationResult) {
	if s.Notifier != nil {
		for _, ev := range evs {
			s.Notifier.Notify(ctx, ev)
		}
	}
	if s.Reconciler == nil {
		return
	}
	var (
		status room.Status
		err    error
	)
	if res.RoomID != "" {
		status, err = s.Reconciler.ReconcileRoom(ctx, res.RoomID)
	} else {
		var out rooms.Outcome
		out, err = s.Reconciler.ReconcileRoomByKey(ctx, res.Room)
		status = out.Status
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("room reconciliation after booking change failed", "reservation_id", res.ID, "room_id", res.RoomID, "room", res.Room.String(), "error", err)
		}
		result.Warnings = append(result.Warnings, "room status not reconciled: "+err.Error())
		return
	}
	result.RoomStatus = string(status)
}
