package bridge

// Side names one end of the bridge.
type Side string

const (
	SideUI      Side = "ui"
	SideBackend Side = "backend"
)

// Op is the tag of a function exposed by one side of the bridge.
type Op string

// Backend-exposed surface (UI -> backend).
const (
	OpStartListening   Op = "StartListening"
	OpOpenLocationTool Op = "OpenLocationTool"
	OpSetMonitorFlag   Op = "SetMonitorFlag"
	OpClearMonitorFlag Op = "ClearMonitorFlag"
	OpReceiveLocation  Op = "ReceiveLocation"
	OpPlayClickSound   Op = "PlayClickSound"
)

// UI-exposed surface (backend -> UI).
const (
	OpDisplayMessage    Op = "DisplayMessage"
	OpShowListeningMode Op = "ShowListeningMode"
	OpExitListeningMode Op = "ExitListeningMode"
)

// OpReconcileFlags is exposed by both sides: the backend answers it as a
// query and the UI accepts it as a push carrying the current flags.
const OpReconcileFlags Op = "ReconcileFlags"

var surfaces = map[Side]map[Op]struct{}{
	SideBackend: {
		OpStartListening:   {},
		OpOpenLocationTool: {},
		OpSetMonitorFlag:   {},
		OpClearMonitorFlag: {},
		OpReceiveLocation:  {},
		OpPlayClickSound:   {},
		OpReconcileFlags:   {},
	},
	SideUI: {
		OpDisplayMessage:    {},
		OpShowListeningMode: {},
		OpExitListeningMode: {},
		OpReconcileFlags:    {},
	},
}

// ExposedBy reports whether op belongs to the surface of side.
func (op Op) ExposedBy(side Side) bool {
	_, ok := surfaces[side][op]
	return ok
}

// Empty is the argument and result type of calls that carry nothing.
type Empty struct{}

// MessageArgs is the payload of DisplayMessage.
type MessageArgs struct {
	Text string `json:"text"`
}

// LocationToolArgs is the payload of OpenLocationTool.
type LocationToolArgs struct {
	Kind string `json:"kind"`
}
