package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

// ReservationRepository keeps reservations in memory, keyed by id.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[booking.ReservationID]booking.Reservation
	// FailReads makes ForRoom fail, for exercising fetch failures.
	FailReads error
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[booking.ReservationID]booking.Reservation)}
}

// ForRoom returns every reservation of the room, whatever its status.
func (r *ReservationRepository) ForRoom(ctx context.Context, key booking.RoomKey) ([]booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailReads != nil {
		return nil, r.FailReads
	}
	out := make([]booking.Reservation, 0)
	for _, res := range r.items {
		if res.Room == key {
			out = append(out, copyReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReservationRepository) ByID(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	c := copyReservation(res)
	return &c, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *booking.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[res.ID] = copyReservation(*res)
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id booking.ReservationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return booking.ErrReservationNotFound
	}
	delete(r.items, id)
	return nil
}

// copyReservation strips buffered events so stored copies stay independent.
func copyReservation(res booking.Reservation) booking.Reservation {
	c := res
	c.Drain()
	return c
}

// RoomRepository keeps rooms in memory and counts status writes.
type RoomRepository struct {
	mu     sync.RWMutex
	items  map[string]room.Room
	writes int
	// FailWrites makes UpdateStatus fail.
	FailWrites error
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{items: make(map[string]room.Room)}
}

func (r *RoomRepository) Put(rm room.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rm.ID] = rm
}

// Upsert stores the room as given; it is the fixture seeding path.
func (r *RoomRepository) Upsert(ctx context.Context, rm room.Room) error {
	r.Put(rm)
	return nil
}

func (r *RoomRepository) ByID(ctx context.Context, id string) (*room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.items[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return &rm, nil
}

func (r *RoomRepository) ByKey(ctx context.Context, key booking.RoomKey) (*room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rm := range r.items {
		if rm.Key == key {
			found := rm
			return &found, nil
		}
	}
	return nil, room.ErrRoomNotFound
}

func (r *RoomRepository) List(ctx context.Context) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]room.Room, 0, len(r.items))
	for _, rm := range r.items {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RoomRepository) UpdateStatus(ctx context.Context, id string, status room.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}
	rm, ok := r.items[id]
	if !ok {
		return room.ErrRoomNotFound
	}
	rm.Status = status
	rm.UpdatedAt = at.UTC()
	r.items[id] = rm
	r.writes++
	return nil
}

// Writes reports how many status updates were persisted.
func (r *RoomRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

var (
	_ booking.Repository = (*ReservationRepository)(nil)
	_ room.Repository    = (*RoomRepository)(nil)
)
