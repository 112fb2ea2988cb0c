package booking

import (
	"context"
	"strings"
	"time"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/dto"
	"hoteldesk/internal/app/uow"
	"hoteldesk/internal/domain/availability"
	domain "hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

const (
	createReservationKey = "booking.create"
	updateDatesKey       = "booking.update_dates"
	changeStatusKey      = "booking.change_status"
	deleteKey            = "booking.delete"
)

type CreateReservationCommand struct {
	RequestID  string
	Property   string
	RoomNumber string
	RoomID     string
	CheckIn    time.Time
	CheckOut   time.Time
	GuestName  string
	Status     string
}

func (CreateReservationCommand) Key() string             { return createReservationKey }
func (c CreateReservationCommand) IdempotencyKey() string { return strings.TrimSpace(c.RequestID) }
func (CreateReservationCommand) ResultPrototype() any     { return &dto.ReservationResult{} }
func (CreateReservationCommand) SelfCommitting() bool     { return true }

type CreateReservationHandler struct{ *Service }

func (h CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.ReservationResult, error) {
	key := domain.NewRoomKey(cmd.Property, cmd.RoomNumber)
	if key.IsZero() {
		return nil, domain.ErrRoomRequired
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, availability.ErrInvalidRange
	}
	var status domain.Status
	if strings.TrimSpace(cmd.Status) != "" {
		if status, err = domain.ParseStatus(cmd.Status); err != nil {
			return nil, err
		}
	}
	return h.apply(ctx, func(ctx context.Context, unit uow.UnitOfWork) (*domain.Reservation, error) {
		policy := availability.Policy{Source: unit.Reservations(), Logger: h.Logger}
		if err := policy.Check(ctx, dr, availability.Context{Room: key}); err != nil {
			return nil, err
		}
		return domain.NewReservation(domain.NewParams{
			ID:        h.newID(),
			Room:      key,
			RoomID:    strings.TrimSpace(cmd.RoomID),
			Range:     dr,
			GuestName: cmd.GuestName,
			Status:    status,
			Now:       h.now(),
		})
	}, save)
}

type UpdateReservationDatesCommand struct {
	ReservationID string
	CheckIn       time.Time
	CheckOut      time.Time
}

func (UpdateReservationDatesCommand) Key() string         { return updateDatesKey }
func (UpdateReservationDatesCommand) SelfCommitting() bool { return true }

type UpdateReservationDatesHandler struct{ *Service }

// Handle moves a stay. The reservation's current nights are excluded from the
// check so it may slide over its own dates.
func (h UpdateReservationDatesHandler) Handle(ctx context.Context, cmd UpdateReservationDatesCommand) (*dto.ReservationResult, error) {
	id := domain.ReservationID(strings.TrimSpace(cmd.ReservationID))
	if id == "" {
		return nil, domain.ErrReservationNotFound
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, availability.ErrInvalidRange
	}
	return h.apply(ctx, func(ctx context.Context, unit uow.UnitOfWork) (*domain.Reservation, error) {
		res, err := unit.Reservations().ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		policy := availability.Policy{Source: unit.Reservations(), Logger: h.Logger}
		if err := policy.Check(ctx, dr, availability.Context{Room: res.Room, ExcludeReservationID: res.ID}); err != nil {
			return nil, err
		}
		if err := res.Reschedule(dr, h.now()); err != nil {
			return nil, err
		}
		return res, nil
	}, save)
}

type ChangeReservationStatusCommand struct {
	ReservationID string
	Status        string
}

func (ChangeReservationStatusCommand) Key() string         { return changeStatusKey }
func (ChangeReservationStatusCommand) SelfCommitting() bool { return true }

type ChangeReservationStatusHandler struct{ *Service }

func (h ChangeReservationStatusHandler) Handle(ctx context.Context, cmd ChangeReservationStatusCommand) (*dto.ReservationResult, error) {
	id := domain.ReservationID(strings.TrimSpace(cmd.ReservationID))
	if id == "" {
		return nil, domain.ErrReservationNotFound
	}
	target, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, func(ctx context.Context, unit uow.UnitOfWork) (*domain.Reservation, error) {
		res, err := unit.Reservations().ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := res.Transition(target, h.now()); err != nil {
			return nil, err
		}
		return res, nil
	}, save)
}

type DeleteReservationCommand struct {
	ReservationID string
}

func (DeleteReservationCommand) Key() string         { return deleteKey }
func (DeleteReservationCommand) SelfCommitting() bool { return true }

type DeleteReservationHandler struct{ *Service }

// Handle removes the reservation and frees its nights. The room is reconciled
// afterwards like any other booking change.
func (h DeleteReservationHandler) Handle(ctx context.Context, cmd DeleteReservationCommand) (*dto.ReservationResult, error) {
	id := domain.ReservationID(strings.TrimSpace(cmd.ReservationID))
	if id == "" {
		return nil, domain.ErrReservationNotFound
	}
	result, err := h.apply(ctx, func(ctx context.Context, unit uow.UnitOfWork) (*domain.Reservation, error) {
		res, err := unit.Reservations().ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		res.Remove(h.now())
		return res, nil
	}, remove)
	if err != nil {
		return nil, err
	}
	result.Deleted = true
	return result, nil
}

// Register wires the booking commands into r.
func Register(r *bus.Registry, s *Service) {
	bus.Register[CreateReservationCommand, *dto.ReservationResult](r, CreateReservationHandler{s})
	bus.Register[UpdateReservationDatesCommand, *dto.ReservationResult](r, UpdateReservationDatesHandler{s})
	bus.Register[ChangeReservationStatusCommand, *dto.ReservationResult](r, ChangeReservationStatusHandler{s})
	bus.Register[DeleteReservationCommand, *dto.ReservationResult](r, DeleteReservationHandler{s})
}

var (
	_ bus.Handler[CreateReservationCommand, *dto.ReservationResult]       = CreateReservationHandler{}
	_ bus.Handler[UpdateReservationDatesCommand, *dto.ReservationResult]  = UpdateReservationDatesHandler{}
	_ bus.Handler[ChangeReservationStatusCommand, *dto.ReservationResult] = ChangeReservationStatusHandler{}
	_ bus.Handler[DeleteReservationCommand, *dto.ReservationResult]       = DeleteReservationHandler{}
)
