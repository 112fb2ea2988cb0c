package availability

import (
	"context"
	"log/slog"
	"time"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/calendar"
	"hoteldesk/internal/app/dto"
	"hoteldesk/internal/app/uow"
	domain "hoteldesk/internal/domain/availability"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

const (
	dateOccupiedKey      = "availability.date_occupied"
	rangeAvailabilityKey = "availability.range"
	calendarMonthKey     = "availability.calendar"
)

// Scope selects the room and, when editing, the reservation to leave out.
type Scope struct {
	Property             string
	RoomNumber           string
	ExcludeReservationID string
}

func (s Scope) context() domain.Context {
	return domain.Context{
		Room:                 booking.NewRoomKey(s.Property, s.RoomNumber),
		ExcludeReservationID: booking.ReservationID(s.ExcludeReservationID),
	}
}

type DateOccupiedQuery struct {
	Scope
	Date time.Time
}

func (DateOccupiedQuery) Key() string    { return dateOccupiedKey }
func (DateOccupiedQuery) ReadOnly() bool { return true }

type RangeAvailabilityQuery struct {
	Scope
	From time.Time
	To   time.Time
}

func (RangeAvailabilityQuery) Key() string    { return rangeAvailabilityKey }
func (RangeAvailabilityQuery) ReadOnly() bool { return true }

type CalendarMonthQuery struct {
	Scope
	Year  int
	Month time.Month
	// DisablePast greys out days before today.
	DisablePast bool
}

func (CalendarMonthQuery) Key() string    { return calendarMonthKey }
func (CalendarMonthQuery) ReadOnly() bool { return true }

// Handler answers every availability query from a freshly built index.
type Handler struct {
	UoWFactory uow.Factory
	Logger     *slog.Logger
	Today      func() time.Time
}

func (h *Handler) withPolicy(ctx context.Context, fn func(context.Context, domain.Policy) error) (err error) {
	unit, execCtx, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer finish(&err)
	return fn(execCtx, domain.Policy{Source: unit.Reservations(), Logger: h.Logger})
}

type DateOccupiedHandler struct{ *Handler }

// Handle returns the occupancy flags together with any fetch error; on a fetch
// error the date is reported occupied and disabled.
func (h DateOccupiedHandler) Handle(ctx context.Context, q DateOccupiedQuery) (*dto.DateOccupancy, error) {
	qc := q.context()
	out := &dto.DateOccupancy{
		Room:     dto.MapRoomKey(qc.Room),
		Date:     daterange.Day(q.Date).Format(daterange.DateLayout),
		Occupied: true,
		Disabled: true,
	}
	err := h.withPolicy(ctx, func(ctx context.Context, p domain.Policy) error {
		occupied, err := p.IsDateOccupied(ctx, q.Date, qc)
		out.Occupied, out.Disabled = occupied, occupied
		return err
	})
	return out, err
}

type RangeAvailabilityHandler struct{ *Handler }

func (h RangeAvailabilityHandler) Handle(ctx context.Context, q RangeAvailabilityQuery) (*dto.RangeAvailability, error) {
	qc := q.context()
	dr, err := daterange.New(q.From, q.To)
	if err != nil {
		return nil, domain.ErrInvalidRange
	}
	out := &dto.RangeAvailability{Room: dto.MapRoomKey(qc.Room), Range: dto.MapSpan(dr), Conflicts: []dto.Conflict{}}
	err = h.withPolicy(ctx, func(ctx context.Context, p domain.Policy) error {
		idx, err := p.Index(ctx, qc)
		if err != nil {
			return err
		}
		conflicts := idx.Conflicts(dr)
		out.Available = len(conflicts) == 0
		out.Conflicts = dto.MapConflicts(conflicts)
		if !out.Available {
			out.NextFree = idx.NextFree(dr.CheckIn).Format(daterange.DateLayout)
		}
		return nil
	})
	if err != nil {
		out.Available = false
		return out, err
	}
	return out, nil
}

type CalendarMonthHandler struct{ *Handler }

func (h CalendarMonthHandler) Handle(ctx context.Context, q CalendarMonthQuery) (*dto.CalendarMonth, error) {
	if q.Month < time.January || q.Month > time.December {
		return nil, daterange.ErrUnparseableDate
	}
	qc := q.context()
	var out dto.CalendarMonth
	err := h.withPolicy(ctx, func(ctx context.Context, p domain.Policy) error {
		idx, err := p.Index(ctx, qc)
		if err != nil {
			return err
		}
		picker := calendar.Picker{Index: idx, Room: qc.Room, DisablePast: q.DisablePast}
		if h.Today != nil {
			picker.Today = h.Today()
		}
		out = dto.MapCalendarMonth(qc.Room, q.Year, q.Month, picker.Month(q.Year, q.Month), idx.Blocked())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register wires the availability queries into r.
func Register(r *bus.Registry, h *Handler) {
	bus.Register[DateOccupiedQuery, *dto.DateOccupancy](r, DateOccupiedHandler{h})
	bus.Register[RangeAvailabilityQuery, *dto.RangeAvailability](r, RangeAvailabilityHandler{h})
	bus.Register[CalendarMonthQuery, *dto.CalendarMonth](r, CalendarMonthHandler{h})
}

var (
	_ bus.Handler[DateOccupiedQuery, *dto.DateOccupancy]          = DateOccupiedHandler{}
	_ bus.Handler[RangeAvailabilityQuery, *dto.RangeAvailability] = RangeAvailabilityHandler{}
	_ bus.Handler[CalendarMonthQuery, *dto.CalendarMonth]         = CalendarMonthHandler{}
)
