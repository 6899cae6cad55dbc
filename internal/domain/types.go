package domain

// Mode models which of the two mutually exclusive regions is visible.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeListening Mode = "listening"
)

// Region is one of the two mutually exclusive visual regions.
type Region string

const (
	RegionIdleIndicator     Region = "idle_indicator"
	RegionListeningWaveform Region = "listening_waveform"
)

// RegionFor returns the only region that is visible in mode.
func RegionFor(mode Mode) Region {
	if mode == ModeListening {
		return RegionListeningWaveform
	}
	return RegionIdleIndicator
}

// Panel identifies an overlay window that can be opened and closed locally.
type Panel string

const (
	PanelSettings     Panel = "settings"
	PanelInstructions Panel = "instructions"
)

// ToggleState mirrors the backend-owned monitor flag.
type ToggleState string

const (
	ToggleUnset ToggleState = "unset"
	ToggleOn    ToggleState = "on"
	ToggleOff   ToggleState = "off"
)

// GestureKind enumerates the user gestures the shell understands.
type GestureKind string

const (
	GestureStartListening    GestureKind = "start_listening"
	GestureOpenLocationTool  GestureKind = "open_location_tool"
	GestureOpenSettings      GestureKind = "open_settings"
	GestureCloseSettings     GestureKind = "close_settings"
	GestureOpenInstructions  GestureKind = "open_instructions"
	GestureCloseInstructions GestureKind = "close_instructions"
	GestureToggleMonitorOn   GestureKind = "toggle_monitor_on"
	GestureToggleMonitorOff  GestureKind = "toggle_monitor_off"
)

// Valid reports whether k is a known gesture.
func (k GestureKind) Valid() bool {
	switch k {
	case GestureStartListening, GestureOpenLocationTool,
		GestureOpenSettings, GestureCloseSettings,
		GestureOpenInstructions, GestureCloseInstructions,
		GestureToggleMonitorOn, GestureToggleMonitorOff:
		return true
	default:
		return false
	}
}

// ErrorCode identifies non-fatal errors reported to the view.
type ErrorCode string

const (
	ErrorCodeStartup  ErrorCode = "startup"
	ErrorCodeBridge   ErrorCode = "bridge"
	ErrorCodeGesture  ErrorCode = "gesture"
	ErrorCodeLocation ErrorCode = "location"
)

// VisibleState is everything the shell renders besides the toggle group.
type VisibleState struct {
	Mode             Mode   `json:"mode"`
	Message          string `json:"message"`
	SettingsOpen     bool   `json:"settingsOpen"`
	InstructionsOpen bool   `json:"instructionsOpen"`
}

// Flags carries the backend-owned monitor flags. A nil field was not reported.
type Flags struct {
	JSONMode  *bool `json:"jsonModeFlag,omitempty"`
	SpeakMode *bool `json:"speakModeFlag,omitempty"`
}

// NewFlags builds a fully reported Flags value.
func NewFlags(jsonMode, speakMode bool) Flags {
	return Flags{JSONMode: &jsonMode, SpeakMode: &speakMode}
}

// Reconcile maps flags onto a toggle state. A true flag wins over a false one;
// ok is false when neither flag was reported and the toggle must stay as is.
func (f Flags) Reconcile() (state ToggleState, ok bool) {
	if isTrue(f.JSONMode) || isTrue(f.SpeakMode) {
		return ToggleOn, true
	}
	if isFalse(f.JSONMode) || isFalse(f.SpeakMode) {
		return ToggleOff, true
	}
	return "", false
}

func isTrue(v *bool) bool  { return v != nil && *v }
func isFalse(v *bool) bool { return v != nil && !*v }

// Location is a single geolocation fix.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Snapshot summarizes the shell state for the UI and diagnostics.
type Snapshot struct {
	Visible    VisibleState `json:"visible"`
	Region     Region       `json:"region"`
	Toggle     ToggleState  `json:"toggle"`
	Suppressed bool         `json:"suppressed"`
	Connected  bool         `json:"connected"`
}
