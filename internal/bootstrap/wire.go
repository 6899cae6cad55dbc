package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"novashell/internal/assistant"
	"novashell/internal/audio"
	"novashell/internal/bridge"
	"novashell/internal/config"
	"novashell/internal/loop"
	"novashell/internal/ports"
	"novashell/internal/usecase"
)

var redialDelay = time.Second

// Shell is the assembled runtime graph of the desktop shell.
type Shell struct {
	Config     config.Config
	Loop       *loop.Loop
	Server     *bridge.Server
	Controller *usecase.UIController
}

// BuildShell wires the shell around view.
func BuildShell(view ports.View) (Shell, error) {
	cfg, err := config.Load()
	if err != nil {
		return Shell{}, err
	}
	if err := ConfigureLogging(cfg.Log); err != nil {
		return Shell{}, err
	}

	eventLoop := loop.New(0)
	registry := bridge.NewRegistry(bridge.SideUI)
	server := bridge.NewServer(registry, bridge.ServerConfig{Path: cfg.Bridge.Path})

	controller := usecase.NewUIController(
		eventLoop,
		bridge.NewBackendClient(server),
		view,
		usecase.Config{
			Poller: usecase.PollerConfig{
				Interval:         cfg.Poller.Interval,
				SuppressionDelay: cfg.Poller.SuppressionDelay,
				CallTimeout:      cfg.Bridge.CallTimeout,
			},
			ClickFeedback:    cfg.UI.ClickFeedback,
			LocationToolKind: cfg.UI.LocationToolKind,
		},
	)
	if err := bridge.ExposeUI(registry, controller); err != nil {
		return Shell{}, err
	}
	server.OnPeerChange(controller.SetConnected)

	return Shell{
		Config:     cfg,
		Loop:       eventLoop,
		Server:     server,
		Controller: controller,
	}, nil
}

// Run starts the event loop, the controller and the bridge server. It
// returns when ctx is done or the server fails.
func (s Shell) Run(ctx context.Context) error {
	go s.Loop.Run(ctx)
	s.Controller.Start(ctx)
	return s.Server.ListenAndServe(ctx, s.Config.Bridge.ListenAddr)
}

// Backend is the assembled reference assistant.
type Backend struct {
	Config   config.Config
	Service  *assistant.Service
	Registry *bridge.Registry
}

// BuildBackend wires the reference assistant from configuration.
func BuildBackend() (Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return Backend{}, err
	}
	if err := ConfigureLogging(cfg.Log); err != nil {
		return Backend{}, err
	}
	return NewBackend(cfg, audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand, 0), assistant.BrowserOpener{})
}

// NewBackend wires the reference assistant around the given side effects.
func NewBackend(cfg config.Config, sound ports.SoundPlayer, opener ports.URLOpener) (Backend, error) {
	service := assistant.NewService(sound, opener, assistant.Config{
		ClickSoundPath:     cfg.Audio.ClickSoundPath,
		StatusPushInterval: cfg.Backend.StatusPushInterval,
		ListenWindow:       cfg.Backend.ListenWindow,
		PushTimeout:        cfg.Bridge.CallTimeout,
	})
	registry := bridge.NewRegistry(bridge.SideBackend)
	if err := bridge.ExposeBackend(registry, service); err != nil {
		return Backend{}, err
	}
	return Backend{Config: cfg, Service: service, Registry: registry}, nil
}

// Run dials the shell and serves it until ctx is done, redialing whenever
// the connection drops.
func (b Backend) Run(ctx context.Context, greet bool) error {
	defer b.Service.Close()

	for {
		err := b.session(ctx, greet)
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).WithField("url", b.Config.Bridge.URL).Warn("Bridge session ended, redialing")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(redialDelay):
		}
	}
}

func (b Backend) session(ctx context.Context, greet bool) error {
	peer, err := bridge.Dial(ctx, b.Config.Bridge.URL, b.Registry)
	if err != nil {
		return err
	}
	defer peer.Close()

	b.Service.AttachUI(bridge.NewUIClient(peer))
	defer b.Service.AttachUI(nil)
	log.WithField("url", b.Config.Bridge.URL).Info("Connected to shell")

	if greet {
		greetCtx, cancel := context.WithTimeout(ctx, b.Config.Bridge.CallTimeout)
		if err := b.Service.Greet(greetCtx); err != nil {
			log.WithError(err).Debug("Greeting failed")
		}
		cancel()
	}

	pushCtx, stopPush := context.WithCancel(ctx)
	defer stopPush()
	go b.Service.RunStatusPush(pushCtx)

	select {
	case <-ctx.Done():
		return nil
	case <-peer.Done():
		if err := peer.Wait(); err != nil {
			return err
		}
		return errors.New("shell closed the bridge")
	}
}

// ConfigureLogging applies the level and format to the standard logger.
func ConfigureLogging(cfg config.LogConfig) error {
	level, err := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("invalid log format %q", cfg.Format)
	}
	return nil
}
