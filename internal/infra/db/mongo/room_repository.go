package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
)

type RoomRepository struct {
	col *mongo.Collection
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{col: db.Collection("rooms")}
}

func (r *RoomRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "property_key", Value: 1}, {Key: "room_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *RoomRepository) ByID(ctx context.Context, id string) (*room.Room, error) {
	var doc roomDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, room.ErrRoomNotFound
		}
		return nil, err
	}
	rm := doc.toRoom()
	return &rm, nil
}

func (r *RoomRepository) ByKey(ctx context.Context, key booking.RoomKey) (*room.Room, error) {
	var doc roomDocument
	filter := bson.M{"property_key": key.PropertyKey, "room_number": key.RoomNumber}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, room.ErrRoomNotFound
		}
		return nil, err
	}
	rm := doc.toRoom()
	return &rm, nil
}

func (r *RoomRepository) List(ctx context.Context) ([]room.Room, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []roomDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]room.Room, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toRoom())
	}
	return out, nil
}

// UpdateStatus touches status and updated_at only.
func (r *RoomRepository) UpdateStatus(ctx context.Context, id string, status room.Status, at time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": string(status), "updated_at": at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return room.ErrRoomNotFound
	}
	return nil
}

// Upsert stores the full room document; used when seeding fixtures.
func (r *RoomRepository) Upsert(ctx context.Context, rm room.Room) error {
	doc := roomDocument{
		ID:          rm.ID,
		PropertyKey: rm.Key.PropertyKey,
		RoomNumber:  rm.Key.RoomNumber,
		Status:      string(rm.Status),
		UpdatedAt:   rm.UpdatedAt.UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type roomDocument struct {
	ID          string    `bson:"_id"`
	PropertyKey string    `bson:"property_key"`
	RoomNumber  string    `bson:"room_number"`
	Status      string    `bson:"status"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d roomDocument) toRoom() room.Room {
	status, err := room.ParseStatus(d.Status)
	if err != nil {
		status = room.Status(d.Status)
	}
	return room.Room{
		ID:        d.ID,
		Key:       booking.RoomKey{PropertyKey: d.PropertyKey, RoomNumber: d.RoomNumber},
		Status:    status,
		UpdatedAt: d.UpdatedAt,
	}
}

var _ room.Repository = (*RoomRepository)(nil)
