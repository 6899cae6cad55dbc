package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var novaEnv = []string{
	"NOVA_CONFIG", "NOVA_BRIDGE_LISTEN", "NOVA_BRIDGE_PATH", "NOVA_BRIDGE_URL",
	"NOVA_CALL_TIMEOUT_MS", "NOVA_POLL_INTERVAL_MS", "NOVA_SUPPRESSION_DELAY_MS",
	"NOVA_CLICK_FEEDBACK", "NOVA_LOCATION_TOOL", "NOVA_PLAYER_COMMAND",
	"NOVA_CLICK_SOUND", "NOVA_LOG_LEVEL", "NOVA_LOG_FORMAT", "NOVA_STATUS_PUSH_MS",
	"NOVA_LISTEN_WINDOW_MS",
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range novaEnv {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Bridge.ListenAddr != "127.0.0.1:8765" || cfg.Bridge.Path != "/bridge" {
		t.Fatalf("unexpected bridge config: %+v", cfg.Bridge)
	}
	if cfg.Bridge.URL != "ws://127.0.0.1:8765/bridge" {
		t.Fatalf("expected derived bridge url, got %q", cfg.Bridge.URL)
	}
	if cfg.Poller.Interval != 2*time.Second || cfg.Poller.SuppressionDelay != 2*time.Second {
		t.Fatalf("unexpected poller config: %+v", cfg.Poller)
	}
	if !cfg.UI.ClickFeedback || cfg.UI.LocationToolKind != "gps" {
		t.Fatalf("unexpected ui config: %+v", cfg.UI)
	}
	wantSound := filepath.Join(home, ".config", "novashell", "click.wav")
	if cfg.Audio.PlayerCommand != "ffplay" || cfg.Audio.ClickSoundPath != wantSound {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Backend.StatusPushInterval != 2*time.Second || cfg.Backend.ListenWindow != 6*time.Second {
		t.Fatalf("unexpected backend config: %+v", cfg.Backend)
	}
}

func TestLoadReadsTOMLFromConfigDir(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "novashell")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	contents := `
[bridge]
listen_addr = "127.0.0.1:9000"
path = "ws"

[poller]
interval_ms = 750
suppression_delay_ms = 3000

[ui]
click_feedback = false
location_tool = "map"

[log]
level = "debug"
format = "JSON"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Bridge.ListenAddr != "127.0.0.1:9000" || cfg.Bridge.Path != "/ws" {
		t.Fatalf("unexpected bridge config: %+v", cfg.Bridge)
	}
	if cfg.Bridge.URL != "ws://127.0.0.1:9000/ws" {
		t.Fatalf("unexpected bridge url: %q", cfg.Bridge.URL)
	}
	if cfg.Poller.Interval != 750*time.Millisecond || cfg.Poller.SuppressionDelay != 3*time.Second {
		t.Fatalf("unexpected poller config: %+v", cfg.Poller)
	}
	if cfg.UI.ClickFeedback || cfg.UI.LocationToolKind != "map" {
		t.Fatalf("unexpected ui config: %+v", cfg.UI)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(home, "custom.toml")
	if err := os.WriteFile(path, []byte("[poller]\ninterval_ms = 750\n[audio]\nplayer_command = \"aplay\"\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("NOVA_CONFIG", path)
	t.Setenv("NOVA_POLL_INTERVAL_MS", "1500")
	t.Setenv("NOVA_BRIDGE_URL", "ws://10.0.0.2:8765/bridge")
	t.Setenv("NOVA_CLICK_FEEDBACK", "off")
	t.Setenv("NOVA_STATUS_PUSH_MS", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Poller.Interval != 1500*time.Millisecond {
		t.Fatalf("expected env to win, got %s", cfg.Poller.Interval)
	}
	if cfg.Audio.PlayerCommand != "aplay" {
		t.Fatalf("expected file value to survive, got %q", cfg.Audio.PlayerCommand)
	}
	if cfg.Bridge.URL != "ws://10.0.0.2:8765/bridge" {
		t.Fatalf("unexpected bridge url: %q", cfg.Bridge.URL)
	}
	if cfg.UI.ClickFeedback {
		t.Fatalf("expected click feedback disabled")
	}
	if cfg.Backend.StatusPushInterval != 500*time.Millisecond {
		t.Fatalf("unexpected push interval: %s", cfg.Backend.StatusPushInterval)
	}
	if Path() != path {
		t.Fatalf("expected Path to follow NOVA_CONFIG, got %q", Path())
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	home := isolate(t)
	t.Setenv("NOVA_CONFIG", filepath.Join(home, "missing.toml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(path, []byte("[poller\ninterval_ms = "), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("NOVA_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	isolate(t)
	t.Setenv("NOVA_POLL_INTERVAL_MS", "bad")
	t.Setenv("NOVA_SUPPRESSION_DELAY_MS", "-1")
	t.Setenv("NOVA_CALL_TIMEOUT_MS", "0")
	t.Setenv("NOVA_CLICK_FEEDBACK", "not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Poller.Interval != 2*time.Second {
		t.Fatalf("expected default interval, got %s", cfg.Poller.Interval)
	}
	if cfg.Poller.SuppressionDelay != 2*time.Second {
		t.Fatalf("expected default delay, got %s", cfg.Poller.SuppressionDelay)
	}
	if cfg.Bridge.CallTimeout != 5*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.Bridge.CallTimeout)
	}
	if !cfg.UI.ClickFeedback {
		t.Fatalf("expected default click feedback true")
	}
}
