package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hoteldesk/internal/domain/booking"
)

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("reservations")}
}

func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "property_key", Value: 1}, {Key: "room_number", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}},
	})
	return err
}

// ForRoom only loads reservations that still hold the room.
func (r *ReservationRepository) ForRoom(ctx context.Context, key booking.RoomKey) ([]booking.Reservation, error) {
	cur, err := r.col.Find(ctx, blockingFilter(key), options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]booking.Reservation, 0)
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toReservation())
	}
	return out, cur.Err()
}

func blockingFilter(key booking.RoomKey) bson.M {
	statuses := make([]string, 0, 3)
	for _, s := range booking.BlockingStatuses() {
		statuses = append(statuses, string(s))
	}
	return bson.M{
		"property_key": key.PropertyKey,
		"room_number":  key.RoomNumber,
		"status":       bson.M{"$in": statuses},
	}
}

func (r *ReservationRepository) ByID(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, booking.ErrReservationNotFound
		}
		return nil, err
	}
	res := doc.toReservation()
	return &res, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *booking.Reservation) error {
	doc := newReservationDocument(res)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ReservationRepository) Delete(ctx context.Context, id booking.ReservationID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return booking.ErrReservationNotFound
	}
	return nil
}

type reservationDocument struct {
	ID          string `bson:"_id"`
	PropertyKey string `bson:"property_key"`
	RoomNumber  string `bson:"room_number"`
	RoomID      string `bson:"room_id,omitempty"`
	CheckIn     int64  `bson:"check_in"`
	CheckOut    int64  `bson:"check_out"`
	Status      string `bson:"status"`
	GuestName   string `bson:"guest_name,omitempty"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

func newReservationDocument(r *booking.Reservation) reservationDocument {
	return reservationDocument{
		ID:          string(r.ID),
		PropertyKey: r.Room.PropertyKey,
		RoomNumber:  r.Room.RoomNumber,
		RoomID:      r.RoomID,
		CheckIn:     r.CheckIn.UnixMilli(),
		CheckOut:    r.CheckOut.UnixMilli(),
		Status:      string(r.Status),
		GuestName:   r.GuestName,
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.UpdatedAt.UnixMilli(),
	}
}

// toReservation keeps malformed dates as stored; the availability index skips
// and reports them instead of failing the whole read.
func (d reservationDocument) toReservation() booking.Reservation {
	status, err := booking.ParseStatus(d.Status)
	if err != nil {
		status = booking.Status(d.Status)
	}
	return booking.Reservation{
		ID:        booking.ReservationID(d.ID),
		Room:      booking.RoomKey{PropertyKey: d.PropertyKey, RoomNumber: d.RoomNumber},
		RoomID:    d.RoomID,
		CheckIn:   timestampToTime(d.CheckIn),
		CheckOut:  timestampToTime(d.CheckOut),
		Status:    status,
		GuestName: d.GuestName,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ booking.Repository = (*ReservationRepository)(nil)
