package security

// Kind tells whether a notification concerns the current or the target mode.
type Kind uint8

const (
	// KindCurrent marks a committed current mode or a sensor alert.
	KindCurrent Kind = iota
	// KindTarget marks an accepted target mode request.
	KindTarget
)

// AlertName is the notification name used when a sensor first trips.
const AlertName = "alert"

// String returns "current" or "target".
func (k Kind) String() string {
	if k == KindTarget {
		return "target"
	}

	return "current"
}

// Notification is a single side-effect request handed to the dispatcher.
type Notification struct {
	// Kind is the direction of the change.
	Kind Kind
	// Mode is the mode concerned. It is ignored when Alert is set.
	Mode Mode
	// Alert marks the synthetic alert raised when a sensor trips,
	// ahead of the Triggered commit.
	Alert bool
	// Cue marks the audible "entering mode" announcement. Only audio
	// notifiers react to it; every other notifier skips cues.
	Cue bool
}

// Name returns the mode name or "alert".
func (n Notification) Name() string {
	if n.Alert {
		return AlertName
	}

	return n.Mode.String()
}
