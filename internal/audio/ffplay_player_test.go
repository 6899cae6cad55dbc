package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFFPlayPlayerPassesArguments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	script := writeScript(t, "player.sh", "#!/usr/bin/env bash\necho \"$@\" > "+out+"\n")
	sound := writeSound(t)

	player := NewFFPlayPlayer(script, time.Second)
	if err := player.Play(context.Background(), sound); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read args: %v", err)
	}
	want := "-nodisp -autoexit -loglevel error " + sound
	if got := strings.TrimSpace(string(raw)); got != want {
		t.Fatalf("unexpected args: %q", got)
	}
}

func TestFFPlayPlayerReportsStderr(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	player := NewFFPlayPlayer(script, time.Second)

	err := player.Play(context.Background(), writeSound(t))
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFFPlayPlayerTimesOut(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "slow.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	player := NewFFPlayPlayer(script, 100*time.Millisecond)

	err := player.Play(context.Background(), writeSound(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestFFPlayPlayerRequiresSound(t *testing.T) {
	t.Parallel()

	player := NewFFPlayPlayer("", 0)
	if player.command != "ffplay" || player.timeout != defaultPlayTimeout {
		t.Fatalf("unexpected defaults: %q %s", player.command, player.timeout)
	}
	if err := player.Play(context.Background(), ""); !errors.Is(err, ErrNoSound) {
		t.Fatalf("expected ErrNoSound, got %v", err)
	}
	if err := player.Play(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestFFPlayPlayerDropsOverlappingPlays(t *testing.T) {
	t.Parallel()

	player := NewFFPlayPlayer("ffplay", time.Second)
	if !player.begin() {
		t.Fatalf("expected first begin to succeed")
	}
	if err := player.Play(context.Background(), writeSound(t)); err != nil {
		t.Fatalf("overlapping play should be dropped silently, got %v", err)
	}
	player.end()
	if !player.begin() {
		t.Fatalf("expected begin after end to succeed")
	}
}

func TestTrimSpace(t *testing.T) {
	t.Parallel()

	if got := trimSpace("  hi\n"); got != "hi" {
		t.Fatalf("unexpected trim result: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func writeSound(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "click.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("failed to write sound: %v", err)
	}
	return path
}
