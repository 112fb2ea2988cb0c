package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hoteldesk/internal/app/bus"
)

// Idempotent is implemented by commands that may be retried by the dashboard.
type Idempotent interface {
	bus.Message
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result decodes into.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

var ErrMissingPrototype = errors.New("middleware: idempotent command requires a result prototype")

// ReplayedError is returned when a stored failure is replayed for a repeated key.
type ReplayedError struct {
	Key     string
	Message string
}

func (e *ReplayedError) Error() string { return e.Message }

// Idempotency replays the stored outcome of a command whose key was already seen.
func Idempotency(store IdempotencyStore) bus.Middleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next bus.Bus) bus.Bus {
		return bus.Func(func(ctx context.Context, msg bus.Message) (any, error) {
			cmd, ok := msg.(Idempotent)
			if !ok || cmd.IdempotencyKey() == "" {
				return next.Send(ctx, msg)
			}
			key := cmd.Key() + ":" + cmd.IdempotencyKey()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(cmd, rec)
			}

			result, err := next.Send(ctx, msg)
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				record.Error = err.Error()
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := json.Marshal(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, saveErr
			}
			return result, nil
		})
	}
}

func replay(cmd Idempotent, rec IdempotencyRecord) (any, error) {
	if rec.Error != "" {
		return nil, &ReplayedError{Key: rec.Key, Message: rec.Error}
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, ErrMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return proto, nil
	}
	if err := json.Unmarshal(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}
