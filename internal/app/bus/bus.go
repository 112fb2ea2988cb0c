// Package bus routes commands and queries to their handlers through a middleware chain.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Message is a command or query addressed by key.
type Message interface {
	Key() string
}

// Handler processes one message type.
type Handler[M Message, R any] interface {
	Handle(ctx context.Context, msg M) (R, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[M Message, R any] func(ctx context.Context, msg M) (R, error)

func (f HandlerFunc[M, R]) Handle(ctx context.Context, msg M) (R, error) {
	return f(ctx, msg)
}

// Bus is the untyped dispatch surface consumed by transports.
type Bus interface {
	Send(ctx context.Context, msg Message) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("bus: handler not found")
	ErrWrongMessage    = errors.New("bus: message type does not match handler")
	ErrResultType      = errors.New("bus: result type mismatch")
	ErrNilBus          = errors.New("bus: nil bus")
	ErrDuplicateKey    = errors.New("bus: key already registered")
)

type route func(ctx context.Context, msg Message) (any, error)

// Registry is an in-memory Bus keyed by Message.Key.
type Registry struct {
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

func (r *Registry) Send(ctx context.Context, msg Message) (any, error) {
	h, ok := r.routes[msg.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, msg.Key())
	}
	return h(ctx, msg)
}

// Keys lists registered routes, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register binds a typed handler under the message's key.
func Register[M Message, R any](r *Registry, handler Handler[M, R]) {
	if r == nil {
		panic("bus: nil registry")
	}
	var zero M
	key := zero.Key()
	if key == "" {
		panic("bus: empty key registration")
	}
	if _, exists := r.routes[key]; exists {
		panic(fmt.Sprintf("%v: %s", ErrDuplicateKey, key))
	}
	r.routes[key] = func(ctx context.Context, raw Message) (any, error) {
		msg, ok := raw.(M)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWrongMessage, key)
		}
		return handler.Handle(ctx, msg)
	}
}

// Send is the typed entry point used by transports.
func Send[M Message, R any](ctx context.Context, b Bus, msg M) (R, error) {
	var zero R
	if b == nil {
		return zero, ErrNilBus
	}
	res, err := b.Send(ctx, msg)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %T", ErrResultType, res)
	}
	return value, nil
}

// Middleware decorates a Bus.
type Middleware func(next Bus) Bus

// Func adapts a function to Bus.
type Func func(ctx context.Context, msg Message) (any, error)

func (f Func) Send(ctx context.Context, msg Message) (any, error) {
	return f(ctx, msg)
}

// Chain wraps base with mws, the first middleware being the outermost.
func Chain(base Bus, mws ...Middleware) Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
