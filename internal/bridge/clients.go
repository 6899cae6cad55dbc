package bridge

import (
	"context"

	"novashell/internal/domain"
	"novashell/internal/ports"
)

// BackendClient calls the backend surface through a Caller.
type BackendClient struct {
	caller Caller
}

var _ ports.Backend = (*BackendClient)(nil)

func NewBackendClient(caller Caller) *BackendClient {
	return &BackendClient{caller: caller}
}

func (c *BackendClient) StartListening(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpStartListening, nil)
	return err
}

func (c *BackendClient) OpenLocationTool(ctx context.Context, kind string) error {
	_, err := c.caller.Call(ctx, OpOpenLocationTool, LocationToolArgs{Kind: kind})
	return err
}

func (c *BackendClient) SetMonitorFlag(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpSetMonitorFlag, nil)
	return err
}

func (c *BackendClient) ClearMonitorFlag(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpClearMonitorFlag, nil)
	return err
}

func (c *BackendClient) ReceiveLocation(ctx context.Context, loc domain.Location) error {
	_, err := c.caller.Call(ctx, OpReceiveLocation, loc)
	return err
}

func (c *BackendClient) PlayClickSound(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpPlayClickSound, nil)
	return err
}

func (c *BackendClient) ReconcileFlags(ctx context.Context) (domain.Flags, error) {
	return Call[domain.Flags](ctx, c.caller, OpReconcileFlags, nil)
}

// UIClient calls the shell's push surface through a Caller.
type UIClient struct {
	caller Caller
}

var _ ports.UIPusher = (*UIClient)(nil)

func NewUIClient(caller Caller) *UIClient {
	return &UIClient{caller: caller}
}

func (c *UIClient) DisplayMessage(ctx context.Context, text string) error {
	_, err := c.caller.Call(ctx, OpDisplayMessage, MessageArgs{Text: text})
	return err
}

func (c *UIClient) ShowListeningMode(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpShowListeningMode, nil)
	return err
}

func (c *UIClient) ExitListeningMode(ctx context.Context) error {
	_, err := c.caller.Call(ctx, OpExitListeningMode, nil)
	return err
}

func (c *UIClient) ReconcileFlags(ctx context.Context, flags domain.Flags) error {
	_, err := c.caller.Call(ctx, OpReconcileFlags, flags)
	return err
}

// ExposeUI registers the shell's push surface on r.
func ExposeUI(r *Registry, target ports.PushTarget) error {
	return firstErr(
		Expose(r, OpDisplayMessage, func(_ context.Context, args MessageArgs) (Empty, error) {
			target.DisplayMessage(args.Text)
			return Empty{}, nil
		}),
		Expose(r, OpShowListeningMode, func(context.Context, Empty) (Empty, error) {
			target.ShowListeningMode()
			return Empty{}, nil
		}),
		Expose(r, OpExitListeningMode, func(context.Context, Empty) (Empty, error) {
			target.ExitListeningMode()
			return Empty{}, nil
		}),
		Expose(r, OpReconcileFlags, func(_ context.Context, flags domain.Flags) (Empty, error) {
			target.ReconcileFlags(flags)
			return Empty{}, nil
		}),
	)
}

// ExposeBackend registers the backend surface on r.
func ExposeBackend(r *Registry, backend ports.Backend) error {
	return firstErr(
		Expose(r, OpStartListening, func(ctx context.Context, _ Empty) (Empty, error) {
			return Empty{}, backend.StartListening(ctx)
		}),
		Expose(r, OpOpenLocationTool, func(ctx context.Context, args LocationToolArgs) (Empty, error) {
			return Empty{}, backend.OpenLocationTool(ctx, args.Kind)
		}),
		Expose(r, OpSetMonitorFlag, func(ctx context.Context, _ Empty) (Empty, error) {
			return Empty{}, backend.SetMonitorFlag(ctx)
		}),
		Expose(r, OpClearMonitorFlag, func(ctx context.Context, _ Empty) (Empty, error) {
			return Empty{}, backend.ClearMonitorFlag(ctx)
		}),
		Expose(r, OpReceiveLocation, func(ctx context.Context, loc domain.Location) (Empty, error) {
			return Empty{}, backend.ReceiveLocation(ctx, loc)
		}),
		Expose(r, OpPlayClickSound, func(ctx context.Context, _ Empty) (Empty, error) {
			return Empty{}, backend.PlayClickSound(ctx)
		}),
		Expose(r, OpReconcileFlags, func(ctx context.Context, _ Empty) (domain.Flags, error) {
			return backend.ReconcileFlags(ctx)
		}),
	)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
