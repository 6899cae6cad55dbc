package ports

import (
	"context"

	"novashell/internal/domain"
)

// Backend is the call surface the assistant process exposes to the shell.
type Backend interface {
	StartListening(ctx context.Context) error
	OpenLocationTool(ctx context.Context, kind string) error
	SetMonitorFlag(ctx context.Context) error
	ClearMonitorFlag(ctx context.Context) error
	ReceiveLocation(ctx context.Context, loc domain.Location) error
	PlayClickSound(ctx context.Context) error
	ReconcileFlags(ctx context.Context) (domain.Flags, error)
}

// PushTarget receives backend-initiated pushes on the shell side.
// Implementations apply state and never report back to the caller.
type PushTarget interface {
	DisplayMessage(text string)
	ShowListeningMode()
	ExitListeningMode()
	ReconcileFlags(flags domain.Flags)
}

// UIPusher is the backend's handle on the shell's push surface.
type UIPusher interface {
	DisplayMessage(ctx context.Context, text string) error
	ShowListeningMode(ctx context.Context) error
	ExitListeningMode(ctx context.Context) error
	ReconcileFlags(ctx context.Context, flags domain.Flags) error
}

// View renders shell state. Calls arrive from the event loop only.
type View interface {
	ShowRegion(region domain.Region)
	RevealMessage(text string)
	SelectToggle(state domain.ToggleState)
	SetPanel(panel domain.Panel, open bool)
	PollerStateChanged(suppressed bool)
	ConnectionChanged(connected bool)
	ReportError(code domain.ErrorCode, detail string)
}

// SoundPlayer plays a short audio file to completion.
type SoundPlayer interface {
	Play(ctx context.Context, path string) error
}

// URLOpener hands a URL to the desktop environment.
type URLOpener interface {
	OpenURL(url string) error
}
