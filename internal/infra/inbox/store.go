// Package inbox records which broker events a consumer already applied.
package inbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collection = "consumer_inbox"
	retention  = 7 * 24 * time.Hour
)

type entry struct {
	EventID    string    `bson:"event_id"`
	Consumer   string    `bson:"consumer"`
	ReceivedAt time.Time `bson:"received_at"`
}

// Store deduplicates consumed events per consumer group. Markers expire after
// the broker retention window, so redeliveries older than that reapply.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewStore(ctx context.Context, db *mongo.Database, consumer string) (*Store, error) {
	col := db.Collection(collection)
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "consumer", Value: 1}, {Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("consumer_event"),
		},
		{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())).SetName("received_ttl"),
		},
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, err
	}
	return &Store{col: col, consumer: consumer, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Seen inserts the marker; a duplicate key means another delivery got there first.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	_, err := s.col.InsertOne(ctx, entry{EventID: eventID, Consumer: s.consumer, ReceivedAt: s.now()})
	switch {
	case err == nil:
		return false, nil
	case mongo.IsDuplicateKeyError(err):
		return true, nil
	default:
		return false, err
	}
}

// Forget drops the marker so a failed event is handled again on redelivery.
func (s *Store) Forget(ctx context.Context, eventID string) error {
	_, err := s.col.DeleteOne(ctx, bson.D{{Key: "consumer", Value: s.consumer}, {Key: "event_id", Value: eventID}})
	return err
}
