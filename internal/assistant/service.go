package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"novashell/internal/domain"
	"novashell/internal/ports"
)

// ErrUnknownTool is returned by OpenLocationTool for kinds it cannot open.
var ErrUnknownTool = errors.New("unknown location tool")

const (
	msgListening   = "[Listening for command...]"
	msgNoResponse  = "No response detected. Going back to monitoring mode."
	msgNoLocation  = "Location coordinates not available."
	msgGreeting    = "Hey driver, how can I help you?"
	mapsURLPattern = "https://www.google.com/maps?q=%.6f,%.6f"
)

// State is the assistant's view of the session.
type State struct {
	JSONMode   bool
	SpeakMode  bool
	MicPressed bool
	Location   *domain.Location
}

type Config struct {
	ClickSoundPath     string
	StatusPushInterval time.Duration
	ListenWindow       time.Duration
	PushTimeout        time.Duration
}

// Service is an in-memory stand-in for the voice assistant process. It serves
// the backend call surface and pushes state changes to the attached shell.
type Service struct {
	sound  ports.SoundPlayer
	opener ports.URLOpener
	cfg    Config

	mu          sync.Mutex
	state       State
	ui          ports.UIPusher
	listenTimer *time.Timer
	// listenSeq identifies the current listening session. A timer that fires
	// for an older session is ignored.
	listenSeq uint64
}

var _ ports.Backend = (*Service)(nil)

func NewService(sound ports.SoundPlayer, opener ports.URLOpener, cfg Config) *Service {
	if cfg.ListenWindow <= 0 {
		cfg.ListenWindow = 6 * time.Second
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	return &Service{
		sound:  sound,
		opener: opener,
		cfg:    cfg,
		state:  State{JSONMode: true, SpeakMode: true},
	}
}

// AttachUI sets the shell the service pushes to. A nil pusher detaches it.
func (s *Service) AttachUI(ui ports.UIPusher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = ui
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	if s.state.Location != nil {
		loc := *s.state.Location
		state.Location = &loc
	}
	return state
}

func (s *Service) StartListening(ctx context.Context) error {
	s.mu.Lock()
	s.state.MicPressed = true
	if s.listenTimer != nil {
		s.listenTimer.Stop()
	}
	s.listenSeq++
	seq := s.listenSeq
	s.listenTimer = time.AfterFunc(s.cfg.ListenWindow, func() { s.endListening(seq) })
	s.mu.Unlock()

	log.Info("Listening for command")
	return s.push(ctx, func(ctx context.Context, ui ports.UIPusher) error {
		if err := ui.ShowListeningMode(ctx); err != nil {
			return err
		}
		return ui.DisplayMessage(ctx, msgListening)
	})
}

// endListening closes a listening session that heard nothing. Speech
// recognition is out of scope, so every session ends this way.
func (s *Service) endListening(seq uint64) {
	s.mu.Lock()
	if seq != s.listenSeq || s.listenTimer == nil {
		s.mu.Unlock()
		return
	}
	s.state.MicPressed = false
	s.listenTimer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PushTimeout)
	defer cancel()
	err := s.push(ctx, func(ctx context.Context, ui ports.UIPusher) error {
		if err := ui.DisplayMessage(ctx, msgNoResponse); err != nil {
			return err
		}
		return ui.ExitListeningMode(ctx)
	})
	if err != nil {
		log.WithError(err).Debug("Failed to push end of listening")
	}
}

func (s *Service) OpenLocationTool(ctx context.Context, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "gps", "map", "location":
	default:
		return errors.Wrapf(ErrUnknownTool, "%q", kind)
	}

	loc := s.State().Location
	if loc == nil {
		log.Warn("Location tool requested without a fix")
		return s.push(ctx, func(ctx context.Context, ui ports.UIPusher) error {
			return ui.DisplayMessage(ctx, msgNoLocation)
		})
	}

	url := MapsURL(*loc)
	log.WithField("url", url).Info("Opening location tool")
	if err := s.opener.OpenURL(url); err != nil {
		return errors.Wrap(err, "failed to open maps")
	}
	return nil
}

func (s *Service) SetMonitorFlag(context.Context) error {
	s.mu.Lock()
	s.state.JSONMode = true
	s.state.SpeakMode = true
	s.mu.Unlock()
	log.Info("Monitoring enabled")
	return nil
}

func (s *Service) ClearMonitorFlag(context.Context) error {
	s.mu.Lock()
	s.state.JSONMode = false
	s.mu.Unlock()
	log.Info("Monitoring disabled")
	return nil
}

func (s *Service) ReceiveLocation(_ context.Context, loc domain.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return errors.Errorf("location out of range: %f,%f", loc.Latitude, loc.Longitude)
	}
	s.mu.Lock()
	s.state.Location = &loc
	s.mu.Unlock()
	log.WithFields(log.Fields{"lat": loc.Latitude, "lon": loc.Longitude}).Info("Received location")
	return nil
}

func (s *Service) PlayClickSound(ctx context.Context) error {
	if s.sound == nil {
		return nil
	}
	return s.sound.Play(ctx, s.cfg.ClickSoundPath)
}

func (s *Service) ReconcileFlags(context.Context) (domain.Flags, error) {
	return s.flags(), nil
}

// Greet shows the wake greeting on the attached shell.
func (s *Service) Greet(ctx context.Context) error {
	return s.push(ctx, func(ctx context.Context, ui ports.UIPusher) error {
		return ui.DisplayMessage(ctx, msgGreeting)
	})
}

// RunStatusPush pushes the monitor flags to the shell on every interval until
// ctx is done. Push failures are logged and the loop keeps going.
func (s *Service) RunStatusPush(ctx context.Context) {
	if s.cfg.StatusPushInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.StatusPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flags := s.flags()
			err := s.push(ctx, func(ctx context.Context, ui ports.UIPusher) error {
				return ui.ReconcileFlags(ctx, flags)
			})
			if err != nil {
				log.WithError(err).Debug("Status push failed")
			}
		}
	}
}

// Close stops a pending listening timeout.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenTimer != nil {
		s.listenTimer.Stop()
		s.listenTimer = nil
	}
	s.listenSeq++
}

func (s *Service) flags() domain.Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewFlags(s.state.JSONMode, s.state.SpeakMode)
}

func (s *Service) push(ctx context.Context, fn func(context.Context, ports.UIPusher) error) error {
	s.mu.Lock()
	ui := s.ui
	s.mu.Unlock()
	if ui == nil {
		log.Debug("No shell attached, dropping push")
		return nil
	}
	return fn(ctx, ui)
}

// MapsURL links to loc on Google Maps.
func MapsURL(loc domain.Location) string {
	return fmt.Sprintf(mapsURLPattern, loc.Latitude, loc.Longitude)
}
