package bridge

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Caller issues calls into the other side of the bridge.
type Caller interface {
	Call(ctx context.Context, op Op, args any) (json.RawMessage, error)
}

// Call issues op through caller and decodes the result into R.
func Call[R any](ctx context.Context, caller Caller, op Op, args any) (R, error) {
	var result R
	raw, err := caller.Call(ctx, op, args)
	if err != nil {
		return result, err
	}
	if err := decodePayload(raw, &result); err != nil {
		return result, errors.Wrapf(err, "decode %s result", op)
	}
	return result, nil
}

// RemoteError is a handler failure reported by the other side.
type RemoteError struct {
	Op      Op
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return string(e.Op) + ": " + e.Message
}

// Pipe connects two registries in-process. Calls made through the returned
// callers are served synchronously by the opposite registry.
func Pipe(ui *Registry, backend *Registry) (toBackend Caller, toUI Caller) {
	return localCaller{target: backend}, localCaller{target: ui}
}

type localCaller struct {
	target *Registry
}

func (c localCaller) Call(ctx context.Context, op Op, args any) (json.RawMessage, error) {
	if c.target == nil {
		return nil, errors.Wrapf(ErrNotConnected, "%s", op)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := encodePayload(args)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s args", op)
	}
	return c.target.Invoke(ctx, op, payload)
}
