package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	// ErrHandlerNotFound is returned when a call names an op with no registered handler.
	ErrHandlerNotFound = errors.New("bridge handler not found")
	// ErrDuplicateHandler is returned when an op is registered twice on the same side.
	ErrDuplicateHandler = errors.New("bridge handler already registered")
	// ErrWrongSide is returned when an op is registered on a side that does not expose it.
	ErrWrongSide = errors.New("op is not exposed by this side")
	// ErrNotConnected is returned when no peer is available to take a call.
	ErrNotConnected = errors.New("bridge peer not connected")
)

// Handler serves one op. Args and result are JSON encoded.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Registry maps op tags to handlers for one side of the bridge.
// Entries are added once at startup and never removed.
type Registry struct {
	side Side

	mu       sync.RWMutex
	handlers map[Op]Handler
}

func NewRegistry(side Side) *Registry {
	return &Registry{side: side, handlers: make(map[Op]Handler)}
}

// Side returns the side this registry exposes.
func (r *Registry) Side() Side {
	return r.side
}

// Register adds a raw handler for op.
func (r *Registry) Register(op Op, handler Handler) error {
	if handler == nil {
		return errors.Errorf("nil handler for %s", op)
	}
	if !op.ExposedBy(r.side) {
		return errors.Wrapf(ErrWrongSide, "%s on %s", op, r.side)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[op]; exists {
		return errors.Wrapf(ErrDuplicateHandler, "%s on %s", op, r.side)
	}
	r.handlers[op] = handler
	return nil
}

// Invoke runs the handler registered for op.
func (r *Registry) Invoke(ctx context.Context, op Op, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	handler, ok := r.handlers[op]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%s on %s", op, r.side)
	}
	return handler(ctx, args)
}

// Ops lists the registered tags in sorted order.
func (r *Registry) Ops() []Op {
	r.mu.RLock()
	ops := lo.Keys(r.handlers)
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Expose registers a typed handler. Args are decoded into A and the result
// R is encoded back; a missing or null payload leaves A at its zero value.
func Expose[A any, R any](r *Registry, op Op, fn func(ctx context.Context, args A) (R, error)) error {
	if fn == nil {
		return errors.Errorf("nil handler for %s", op)
	}
	return r.Register(op, func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args A
		if err := decodePayload(raw, &args); err != nil {
			return nil, errors.Wrapf(err, "decode %s args", op)
		}
		result, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s result", op)
		}
		return encoded, nil
	})
}

func decodePayload(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}

func encodePayload(args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}
