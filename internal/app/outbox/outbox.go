package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"hoteldesk/internal/domain/shared/events"
)

// Record is a serialized domain event waiting to be relayed.
type Record struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, rec Record) error
	Flush(ctx context.Context) error
}

// Publisher delivers an envelope to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

func Encode(ev events.DomainEvent) (Record, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:         uuid.NewString(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

// Append encodes and stages evs. A nil outbox drops them.
func Append(ctx context.Context, box Outbox, evs []events.DomainEvent) error {
	if box == nil {
		return nil
	}
	for _, ev := range evs {
		rec, err := Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Envelope wraps a record as a CloudEvents JSON document.
func Envelope(rec Record, source string) ([]byte, map[string]string, error) {
	var data any
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	doc := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          source,
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// Topic maps "room.status_changed" to "<prefix>room.events.v1".
func Topic(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}
