package audio

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"novashell/internal/ports"
)

// ErrNoSound is returned when no sound file is configured.
var ErrNoSound = errors.New("no sound file configured")

const (
	defaultPlayTimeout = 5 * time.Second
	waitDelay          = 500 * time.Millisecond
)

// FFPlayPlayer plays short cues through ffplay without opening a window.
// Overlapping plays are dropped rather than queued.
type FFPlayPlayer struct {
	command string
	timeout time.Duration

	mu      sync.Mutex
	playing bool
}

var _ ports.SoundPlayer = (*FFPlayPlayer)(nil)

func NewFFPlayPlayer(command string, timeout time.Duration) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	if timeout <= 0 {
		timeout = defaultPlayTimeout
	}
	return &FFPlayPlayer{command: command, timeout: timeout}
}

func (p *FFPlayPlayer) Play(ctx context.Context, path string) error {
	if path == "" {
		return ErrNoSound
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "sound file %s", path)
	}

	if !p.begin() {
		log.WithField("path", path).Debug("Sound already playing, dropping cue")
		return nil
	}
	defer p.end()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		path,
	}
	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "ffplay did not finish")
		}
		if msg := trimSpace(stderr.String()); msg != "" {
			return errors.Wrapf(err, "ffplay failed: %s", msg)
		}
		return errors.Wrap(err, "ffplay failed")
	}
	return nil
}

func (p *FFPlayPlayer) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return false
	}
	p.playing = true
	return true
}

func (p *FFPlayPlayer) end() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
}

func trimSpace(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
