package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"novashell/internal/bootstrap"
	"novashell/internal/config"
	"novashell/internal/domain"
	"novashell/internal/usecase"
)

const (
	eventRegion     = "nova:region"
	eventMessage    = "nova:message"
	eventToggle     = "nova:toggle"
	eventPanel      = "nova:panel"
	eventPoller     = "nova:poller"
	eventConnection = "nova:connection"
	eventError      = "nova:error"

	snapshotTimeout = 2 * time.Second
)

// App is the Wails application root. It renders shell state by emitting
// frontend events and forwards user input to the controller.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	emit   func(ctx context.Context, name string, data ...interface{})

	controller *usecase.UIController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	shell, err := bootstrap.BuildShell(a)
	if err != nil {
		a.bootErr = err
		a.ReportError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = shell.Config
	a.controller = shell.Controller

	go func() {
		if err := shell.Run(a.ctx); err != nil {
			log.WithError(err).Error("Shell stopped")
			a.ReportError(domain.ErrorCodeStartup, err.Error())
		}
	}()
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// Gesture handles a click or key press from the frontend.
func (a *App) Gesture(kind string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.OnUserGesture(domain.GestureKind(kind)); err != nil {
		a.ReportError(domain.ErrorCodeGesture, err.Error())
		return err
	}
	return nil
}

// ReportLocation forwards a geolocation fix from the webview.
func (a *App) ReportLocation(lat, lon float64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if !validCoordinate(lat, 90) || !validCoordinate(lon, 180) {
		err := errors.Errorf("invalid coordinates %f,%f", lat, lon)
		a.ReportError(domain.ErrorCodeLocation, err.Error())
		return err
	}
	a.controller.OnLocationAvailable(lat, lon)
	return nil
}

// ReportLocationUnavailable records that the webview could not get a fix.
func (a *App) ReportLocationUnavailable(reason string) {
	if a.controller == nil {
		return
	}
	a.controller.OnLocationUnavailable(reason)
}

// GetSnapshot returns the current shell state.
func (a *App) GetSnapshot() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	ctx, cancel := context.WithTimeout(a.ctx, snapshotTimeout)
	defer cancel()
	return a.controller.Snapshot(ctx)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"bridgeAddr":       a.cfg.Bridge.ListenAddr,
		"bridgePath":       a.cfg.Bridge.Path,
		"pollInterval":     a.cfg.Poller.Interval.String(),
		"suppressionDelay": a.cfg.Poller.SuppressionDelay.String(),
		"clickFeedback":    fmt.Sprintf("%t", a.cfg.UI.ClickFeedback),
		"configFile":       config.Path(),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return errors.New("application is not initialized")
	}
	return nil
}

func (a *App) send(name string, payload interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, payload)
}

// ShowRegion shows one of the two mutually exclusive mode regions.
func (a *App) ShowRegion(region domain.Region) {
	a.send(eventRegion, map[string]string{"region": string(region)})
}

// RevealMessage replaces the message text and restarts its reveal.
func (a *App) RevealMessage(text string) {
	a.send(eventMessage, map[string]string{"text": text})
}

func (a *App) SelectToggle(state domain.ToggleState) {
	a.send(eventToggle, map[string]string{"state": string(state)})
}

func (a *App) SetPanel(panel domain.Panel, open bool) {
	a.send(eventPanel, map[string]interface{}{"panel": string(panel), "open": open})
}

func (a *App) PollerStateChanged(suppressed bool) {
	a.send(eventPoller, map[string]bool{"suppressed": suppressed})
}

func (a *App) ConnectionChanged(connected bool) {
	a.send(eventConnection, map[string]bool{"connected": connected})
}

// ReportError emits non-fatal errors to the UI.
func (a *App) ReportError(code domain.ErrorCode, detail string) {
	a.send(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeBridge:
		return "Assistant call failed"
	case domain.ErrorCodeGesture:
		return "Unsupported action"
	case domain.ErrorCodeLocation:
		return "Location unavailable"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
