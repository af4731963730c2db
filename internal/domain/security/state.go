package security

// State is the persisted part of the security system state.
type State struct {
	// CurrentMode is the last committed mode.
	CurrentMode Mode
	// TargetMode is the last accepted requested mode.
	TargetMode Mode
	// DelayArming enables the arm delay for requests without an override.
	DelayArming bool
}

// Snapshot is a point-in-time view of the whole engine state.
type Snapshot struct {
	State

	// Arming is true while an arm delay countdown is running.
	Arming bool
	// SirenActive mirrors the remotely writable siren property.
	SirenActive bool
	// TriggerPending is true while a sensor countdown is running.
	TriggerPending bool
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
