package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config stores runtime configuration for the shell and the reference backend.
type Config struct {
	Bridge  BridgeConfig
	Poller  PollerConfig
	UI      UIConfig
	Audio   AudioConfig
	Log     LogConfig
	Backend BackendConfig
}

type BridgeConfig struct {
	ListenAddr  string
	Path        string
	URL         string
	CallTimeout time.Duration
}

type PollerConfig struct {
	Interval         time.Duration
	SuppressionDelay time.Duration
}

type UIConfig struct {
	ClickFeedback    bool
	LocationToolKind string
}

type AudioConfig struct {
	PlayerCommand  string
	ClickSoundPath string
}

type LogConfig struct {
	Level  string
	Format string
}

type BackendConfig struct {
	StatusPushInterval time.Duration
	ListenWindow       time.Duration
}

// fileConfig mirrors config.toml. Durations are milliseconds; pointers mark
// keys the file actually set.
type fileConfig struct {
	Bridge struct {
		ListenAddr    string `toml:"listen_addr"`
		Path          string `toml:"path"`
		URL           string `toml:"url"`
		CallTimeoutMS int    `toml:"call_timeout_ms"`
	} `toml:"bridge"`
	Poller struct {
		IntervalMS         int `toml:"interval_ms"`
		SuppressionDelayMS int `toml:"suppression_delay_ms"`
	} `toml:"poller"`
	UI struct {
		ClickFeedback    *bool  `toml:"click_feedback"`
		LocationToolKind string `toml:"location_tool"`
	} `toml:"ui"`
	Audio struct {
		PlayerCommand  string `toml:"player_command"`
		ClickSoundPath string `toml:"click_sound"`
	} `toml:"audio"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Backend struct {
		StatusPushMS   int `toml:"status_push_ms"`
		ListenWindowMS int `toml:"listen_window_ms"`
	} `toml:"backend"`
}

const (
	defaultListenAddr = "127.0.0.1:8765"
	defaultPath       = "/bridge"
	defaultInterval   = 2 * time.Second
	defaultDelay      = 2 * time.Second
	defaultTimeout    = 5 * time.Second
)

// Load resolves configuration from defaults, the optional TOML file, and
// environment variables, in that order of increasing precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "novashell")

	cfg := defaults(configDir)

	path, explicit := configPath(configDir)
	fc, err := loadFile(path)
	switch {
	case err == nil:
		cfg.merge(fc)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, err
	}

	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

// Path reports which config file Load reads.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path, _ := configPath(filepath.Join(home, ".config", "novashell"))
	return path
}

func defaults(configDir string) Config {
	return Config{
		Bridge: BridgeConfig{
			ListenAddr:  defaultListenAddr,
			Path:        defaultPath,
			CallTimeout: defaultTimeout,
		},
		Poller: PollerConfig{
			Interval:         defaultInterval,
			SuppressionDelay: defaultDelay,
		},
		UI: UIConfig{
			ClickFeedback:    true,
			LocationToolKind: "gps",
		},
		Audio: AudioConfig{
			PlayerCommand:  "ffplay",
			ClickSoundPath: filepath.Join(configDir, "click.wav"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Backend: BackendConfig{
			StatusPushInterval: defaultInterval,
			ListenWindow:       6 * time.Second,
		},
	}
}

func configPath(configDir string) (string, bool) {
	if path := strings.TrimSpace(os.Getenv("NOVA_CONFIG")); path != "" {
		return path, true
	}
	return filepath.Join(configDir, "config.toml"), false
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fileConfig{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return fc, nil
}

func (c *Config) merge(fc fileConfig) {
	c.Bridge.ListenAddr = firstNonEmpty(fc.Bridge.ListenAddr, c.Bridge.ListenAddr)
	c.Bridge.Path = firstNonEmpty(fc.Bridge.Path, c.Bridge.Path)
	c.Bridge.URL = firstNonEmpty(fc.Bridge.URL, c.Bridge.URL)
	c.Bridge.CallTimeout = millisOr(fc.Bridge.CallTimeoutMS, c.Bridge.CallTimeout)

	c.Poller.Interval = millisOr(fc.Poller.IntervalMS, c.Poller.Interval)
	c.Poller.SuppressionDelay = millisOr(fc.Poller.SuppressionDelayMS, c.Poller.SuppressionDelay)

	if fc.UI.ClickFeedback != nil {
		c.UI.ClickFeedback = *fc.UI.ClickFeedback
	}
	c.UI.LocationToolKind = firstNonEmpty(fc.UI.LocationToolKind, c.UI.LocationToolKind)

	c.Audio.PlayerCommand = firstNonEmpty(fc.Audio.PlayerCommand, c.Audio.PlayerCommand)
	c.Audio.ClickSoundPath = firstNonEmpty(fc.Audio.ClickSoundPath, c.Audio.ClickSoundPath)

	c.Log.Level = firstNonEmpty(fc.Log.Level, c.Log.Level)
	c.Log.Format = firstNonEmpty(fc.Log.Format, c.Log.Format)

	c.Backend.StatusPushInterval = millisOr(fc.Backend.StatusPushMS, c.Backend.StatusPushInterval)
	c.Backend.ListenWindow = millisOr(fc.Backend.ListenWindowMS, c.Backend.ListenWindow)
}

func (c *Config) applyEnv() {
	c.Bridge.ListenAddr = envOrDefault("NOVA_BRIDGE_LISTEN", c.Bridge.ListenAddr)
	c.Bridge.Path = envOrDefault("NOVA_BRIDGE_PATH", c.Bridge.Path)
	c.Bridge.URL = envOrDefault("NOVA_BRIDGE_URL", c.Bridge.URL)
	c.Bridge.CallTimeout = envOrDefaultMillis("NOVA_CALL_TIMEOUT_MS", c.Bridge.CallTimeout)

	c.Poller.Interval = envOrDefaultMillis("NOVA_POLL_INTERVAL_MS", c.Poller.Interval)
	c.Poller.SuppressionDelay = envOrDefaultMillis("NOVA_SUPPRESSION_DELAY_MS", c.Poller.SuppressionDelay)

	c.UI.ClickFeedback = envOrDefaultBool("NOVA_CLICK_FEEDBACK", c.UI.ClickFeedback)
	c.UI.LocationToolKind = envOrDefault("NOVA_LOCATION_TOOL", c.UI.LocationToolKind)

	c.Audio.PlayerCommand = envOrDefault("NOVA_PLAYER_COMMAND", c.Audio.PlayerCommand)
	c.Audio.ClickSoundPath = envOrDefault("NOVA_CLICK_SOUND", c.Audio.ClickSoundPath)

	c.Log.Level = envOrDefault("NOVA_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("NOVA_LOG_FORMAT", c.Log.Format)

	c.Backend.StatusPushInterval = envOrDefaultMillis("NOVA_STATUS_PUSH_MS", c.Backend.StatusPushInterval)
	c.Backend.ListenWindow = envOrDefaultMillis("NOVA_LISTEN_WINDOW_MS", c.Backend.ListenWindow)
}

func (c *Config) clamp() {
	if c.Bridge.CallTimeout <= 0 {
		c.Bridge.CallTimeout = defaultTimeout
	}
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = defaultInterval
	}
	if c.Poller.SuppressionDelay <= 0 {
		c.Poller.SuppressionDelay = defaultDelay
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		c.Bridge.Path = "/" + c.Bridge.Path
	}
	if c.Bridge.URL == "" {
		c.Bridge.URL = "ws://" + c.Bridge.ListenAddr + c.Bridge.Path
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
