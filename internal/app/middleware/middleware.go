package middleware

import (
	"context"
	"log/slog"
	"time"

	"hoteldesk/internal/app/bus"
	"hoteldesk/internal/app/outbox"
	"hoteldesk/internal/app/uow"
)

// ReadOnly is implemented by messages that never write.
type ReadOnly interface {
	ReadOnly() bool
}

// SelfCommitting is implemented by commands that commit their own unit before
// running follow-up work; Transaction leaves them alone.
type SelfCommitting interface {
	SelfCommitting() bool
}

// Logging records every dispatched message with its duration and outcome.
func Logging(logger *slog.Logger) bus.Middleware {
	return func(next bus.Bus) bus.Bus {
		return bus.Func(func(ctx context.Context, msg bus.Message) (any, error) {
			start := time.Now()
			res, err := next.Send(ctx, msg)
			if logger == nil {
				return res, err
			}
			if err != nil {
				logger.Warn("message failed", "key", msg.Key(), "duration", time.Since(start), "error", err)
				return res, err
			}
			logger.Debug("message handled", "key", msg.Key(), "duration", time.Since(start))
			return res, nil
		})
	}
}

// Transaction binds a unit of work to the context for the duration of the message.
func Transaction(factory uow.Factory) bus.Middleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next bus.Bus) bus.Bus {
		return bus.Func(func(ctx context.Context, msg bus.Message) (res any, err error) {
			if sc, ok := msg.(SelfCommitting); ok && sc.SelfCommitting() {
				return next.Send(ctx, msg)
			}
			opts := uow.TxOptions{}
			if ro, ok := msg.(ReadOnly); ok {
				opts.ReadOnly = ro.ReadOnly()
			}
			_, execCtx, finish, err := uow.Join(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			defer finish(&err)
			res, err = next.Send(execCtx, msg)
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// OutboxFlush flushes recorded events once the message succeeded.
func OutboxFlush(box outbox.Outbox) bus.Middleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next bus.Bus) bus.Bus {
		return bus.Func(func(ctx context.Context, msg bus.Message) (any, error) {
			res, err := next.Send(ctx, msg)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
