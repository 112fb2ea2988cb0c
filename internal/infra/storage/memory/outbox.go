package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "hoteldesk/internal/app/outbox"
)

// Outbox buffers records and, on Flush, relays them to Publisher when one is set.
// Records that fail to publish stay buffered for the next flush.
type Outbox struct {
	Publisher   appoutbox.Publisher
	TopicPrefix string
	Source      string

	mu      sync.Mutex
	records []appoutbox.Record
	sent    int
}

func NewOutbox(pub appoutbox.Publisher, topicPrefix, source string) *Outbox {
	return &Outbox{Publisher: pub, TopicPrefix: topicPrefix, Source: source}
}

func (o *Outbox) Add(ctx context.Context, rec appoutbox.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Publisher == nil {
		o.sent += len(o.records)
		o.records = nil
		return nil
	}
	var errs []error
	kept := o.records[:0]
	for _, rec := range o.records {
		payload, headers, err := appoutbox.Envelope(rec, o.Source)
		if err == nil {
			err = o.Publisher.Publish(ctx, appoutbox.Topic(o.TopicPrefix, rec.Name), rec.Aggregate, payload, headers)
		}
		if err != nil {
			errs = append(errs, err)
			kept = append(kept, rec)
			continue
		}
		o.sent++
	}
	o.records = kept
	return errors.Join(errs...)
}

// Pending returns a copy of the buffered records.
func (o *Outbox) Pending() []appoutbox.Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.Record(nil), o.records...)
}

func (o *Outbox) Sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent
}

var _ appoutbox.Outbox = (*Outbox)(nil)
