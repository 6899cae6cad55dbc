package usecase

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"novashell/internal/bridge"
	"novashell/internal/domain"
	"novashell/internal/ports"
)

// ErrUnknownGesture is returned for gesture kinds the shell does not handle.
var ErrUnknownGesture = errors.New("unknown gesture")

// Outbound call sites. Each site allows one call in flight.
const (
	siteStartListening   = "StartListening"
	siteOpenLocationTool = "OpenLocationTool"
	siteSetMonitorFlag   = "SetMonitorFlag"
	siteClearMonitorFlag = "ClearMonitorFlag"
	siteReceiveLocation  = "ReceiveLocation"
	sitePlayClickSound   = "PlayClickSound"
)

// Config controls shell behavior.
type Config struct {
	Poller           PollerConfig
	ClickFeedback    bool
	LocationToolKind string
}

// UIController owns the visible shell state. Every mutation happens on the
// event loop behind sched; exported methods only schedule work and are safe
// to call from any goroutine.
type UIController struct {
	sched   Scheduler
	backend ports.Backend
	view    ports.View
	poller  *StatusPoller
	spawn   func(func())
	cfg     Config

	// Event loop state.
	base      context.Context
	visible   domain.VisibleState
	toggle    domain.ToggleState
	connected bool
	inflight  singleFlight
}

var _ ports.PushTarget = (*UIController)(nil)

func NewUIController(sched Scheduler, backend ports.Backend, view ports.View, cfg Config) *UIController {
	return newUIController(sched, backend, view, cfg, defaultPollerDeps())
}

func newUIController(sched Scheduler, backend ports.Backend, view ports.View, cfg Config, deps pollerDeps) *UIController {
	if cfg.LocationToolKind == "" {
		cfg.LocationToolKind = "gps"
	}

	c := &UIController{
		sched:    sched,
		backend:  backend,
		view:     view,
		spawn:    deps.spawn,
		cfg:      cfg,
		base:     context.Background(),
		visible:  domain.VisibleState{Mode: domain.ModeIdle},
		toggle:   domain.ToggleUnset,
		inflight: newSingleFlight(),
	}
	c.poller = newStatusPoller(sched, backend, cfg.Poller, deps)
	c.poller.apply = c.applyToggle
	c.poller.onStateChange = view.PollerStateChanged
	return c
}

// Start renders the initial state and starts the status poller. Calls issued
// by the controller are bound to ctx.
func (c *UIController) Start(ctx context.Context) {
	c.sched.Post(func() {
		c.base = ctx
		c.render()
	})
	go c.poller.Run(ctx)
}

// Poller exposes the status poller driving the toggle group.
func (c *UIController) Poller() *StatusPoller {
	return c.poller
}

// ApplyMessage shows text and restarts its reveal.
func (c *UIController) ApplyMessage(text string) {
	c.sched.Post(func() { c.applyMessage(text) })
}

// ApplyMode switches between the idle indicator and the listening waveform.
func (c *UIController) ApplyMode(mode domain.Mode) {
	c.sched.Post(func() { c.applyMode(mode) })
}

// OnUserGesture schedules the local update and outbound call for kind.
func (c *UIController) OnUserGesture(kind domain.GestureKind) error {
	if !kind.Valid() {
		return errors.Wrapf(ErrUnknownGesture, "%q", kind)
	}
	c.sched.Post(func() { c.handleGesture(kind) })
	return nil
}

// OnLocationAvailable forwards a geolocation fix to the backend.
func (c *UIController) OnLocationAvailable(lat, lon float64) {
	loc := domain.Location{Latitude: lat, Longitude: lon}
	c.sched.Post(func() {
		c.dispatch(siteReceiveLocation, true, func(ctx context.Context) error {
			return c.backend.ReceiveLocation(ctx, loc)
		})
	})
}

// OnLocationUnavailable records a failed or denied fix. Nothing is sent.
func (c *UIController) OnLocationUnavailable(reason string) {
	log.WithField("reason", reason).Debug("Geolocation unavailable")
}

// DisplayMessage is the backend push for message text.
func (c *UIController) DisplayMessage(text string) {
	c.ApplyMessage(text)
}

// ShowListeningMode is the backend push that shows the waveform.
func (c *UIController) ShowListeningMode() {
	c.ApplyMode(domain.ModeListening)
}

// ExitListeningMode is the backend push that returns to the idle indicator.
func (c *UIController) ExitListeningMode() {
	c.ApplyMode(domain.ModeIdle)
}

// ReconcileFlags is the backend push carrying the current monitor flags.
func (c *UIController) ReconcileFlags(flags domain.Flags) {
	c.poller.Offer(flags)
}

// SetConnected records whether a backend peer is attached.
func (c *UIController) SetConnected(connected bool) {
	c.sched.Post(func() {
		if c.connected == connected {
			return
		}
		c.connected = connected
		c.view.ConnectionChanged(connected)
	})
}

// Snapshot returns the current state as seen from the event loop.
func (c *UIController) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	result := make(chan domain.Snapshot, 1)
	if !c.sched.Post(func() { result <- c.snapshot() }) {
		return domain.Snapshot{}, errors.New("event loop stopped")
	}
	select {
	case snap := <-result:
		return snap, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

func (c *UIController) snapshot() domain.Snapshot {
	return domain.Snapshot{
		Visible:    c.visible,
		Region:     domain.RegionFor(c.visible.Mode),
		Toggle:     c.toggle,
		Suppressed: c.poller.isSuppressed(),
		Connected:  c.connected,
	}
}

func (c *UIController) render() {
	c.view.ShowRegion(domain.RegionFor(c.visible.Mode))
	c.view.RevealMessage(c.visible.Message)
	c.view.SelectToggle(c.toggle)
	c.view.SetPanel(domain.PanelSettings, c.visible.SettingsOpen)
	c.view.SetPanel(domain.PanelInstructions, c.visible.InstructionsOpen)
	c.view.ConnectionChanged(c.connected)
}

func (c *UIController) applyMessage(text string) {
	c.visible.Message = text
	c.view.RevealMessage(text)
}

func (c *UIController) applyMode(mode domain.Mode) {
	if mode != domain.ModeListening {
		mode = domain.ModeIdle
	}
	c.visible.Mode = mode
	c.view.ShowRegion(domain.RegionFor(mode))
}

func (c *UIController) applyToggle(state domain.ToggleState) {
	c.toggle = state
	c.view.SelectToggle(state)
}

func (c *UIController) setPanel(panel domain.Panel, open bool) {
	switch panel {
	case domain.PanelSettings:
		c.visible.SettingsOpen = open
	case domain.PanelInstructions:
		c.visible.InstructionsOpen = open
	}
	c.view.SetPanel(panel, open)
}

func (c *UIController) handleGesture(kind domain.GestureKind) {
	log.WithField("gesture", kind).Debug("User gesture")

	switch kind {
	case domain.GestureStartListening:
		c.clickCue()
		c.applyMode(domain.ModeListening)
		c.dispatch(siteStartListening, true, c.backend.StartListening)
	case domain.GestureOpenLocationTool:
		c.clickCue()
		c.applyMode(domain.ModeIdle)
		toolKind := c.cfg.LocationToolKind
		c.dispatch(siteOpenLocationTool, true, func(ctx context.Context) error {
			return c.backend.OpenLocationTool(ctx, toolKind)
		})
	case domain.GestureOpenSettings:
		c.setPanel(domain.PanelSettings, !c.visible.SettingsOpen)
	case domain.GestureCloseSettings:
		c.setPanel(domain.PanelSettings, false)
	case domain.GestureOpenInstructions:
		c.setPanel(domain.PanelSettings, false)
		c.setPanel(domain.PanelInstructions, !c.visible.InstructionsOpen)
	case domain.GestureCloseInstructions:
		c.setPanel(domain.PanelInstructions, false)
	case domain.GestureToggleMonitorOn:
		c.applyMode(domain.ModeIdle)
		c.applyToggle(domain.ToggleOn)
		c.poller.suppress()
		c.dispatch(siteSetMonitorFlag, true, c.backend.SetMonitorFlag)
	case domain.GestureToggleMonitorOff:
		c.applyMode(domain.ModeIdle)
		c.applyToggle(domain.ToggleOff)
		c.poller.suppress()
		c.dispatch(siteClearMonitorFlag, true, c.backend.ClearMonitorFlag)
	}
}

// clickCue sends the best-effort click sound request.
func (c *UIController) clickCue() {
	if !c.cfg.ClickFeedback {
		return
	}
	c.dispatch(sitePlayClickSound, false, c.backend.PlayClickSound)
}

// dispatch issues call off the loop unless site already has a call in
// flight. The outcome is handled back on the loop; failures are not retried
// and leave state as it is.
func (c *UIController) dispatch(site string, report bool, call func(ctx context.Context) error) {
	if !c.inflight.begin(site) {
		log.WithField("call", site).Debug("Call already in flight, skipping")
		return
	}

	base := c.base
	timeout := c.poller.cfg.CallTimeout
	c.spawn(func() {
		ctx, cancel := context.WithTimeout(base, timeout)
		err := call(ctx)
		cancel()

		c.sched.Post(func() {
			c.inflight.end(site)
			if err != nil {
				c.callFailed(site, report, err)
			}
		})
	})
}

func (c *UIController) callFailed(site string, report bool, err error) {
	entry := log.WithField("call", site).WithError(err)
	if !report {
		entry.Debug("Best-effort call failed")
		return
	}
	entry.Warn("Bridge call failed")

	detail := fmt.Sprintf("%s failed: %v", site, err)
	if errors.Is(err, bridge.ErrNotConnected) {
		detail = fmt.Sprintf("%s failed: assistant is not connected", site)
	}
	c.view.ReportError(domain.ErrorCodeBridge, detail)
}
