package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "hoteldesk/internal/app/outbox"
)

// Queue is the claim/ack surface of the outbox store.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Worker struct {
	Queue       Queue
	Producer    appoutbox.Publisher
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// BatchSize bounds how many records one tick relays.
	BatchSize int
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil && w.Logger != nil {
				w.Logger.Warn("outbox relay failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain relays due records until none is due or the batch is full. Publish
// failures are rescheduled with backoff and do not stop the batch.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		doc, err := w.Queue.Claim(ctx, w.ID)
		if err != nil || doc == nil {
			return sent, err
		}
		if err := w.relay(ctx, doc); err != nil {
			if w.Logger != nil {
				w.Logger.Warn("outbox record rescheduled", "id", doc.ID, "name", doc.Name, "attempts", doc.Attempts+1, "error", err)
			}
			if markErr := w.Queue.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error()); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := w.Queue.MarkSent(ctx, doc.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) relay(ctx context.Context, doc *EventDocument) error {
	rec := doc.Record()
	payload, headers, err := appoutbox.Envelope(rec, w.source())
	if err != nil {
		return err
	}
	return w.Producer.Publish(ctx, appoutbox.Topic(w.TopicPrefix, rec.Name), rec.Aggregate, payload, headers)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://hoteldesk"
}
