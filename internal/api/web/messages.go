package web

import (
	"github.com/google/uuid"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
)

// MessageTypeState is the type of the snapshot sent to new stream clients.
const MessageTypeState = "state"

// StateBody is the JSON form of a snapshot.
type StateBody struct {
	CurrentMode    string `json:"current_mode"`
	TargetMode     string `json:"target_mode"`
	DelayArming    bool   `json:"delay_arming"`
	Arming         bool   `json:"arming"`
	SirenActive    bool   `json:"siren_active"`
	TriggerPending bool   `json:"trigger_pending"`
}

// Message is one item of the event stream.
type Message struct {
	// ID is unique per message.
	ID string `json:"id"`
	// Type is "state" or an engine event name.
	Type string `json:"type"`
	// Mode is set for mode events.
	Mode string `json:"mode,omitempty"`
	// Value is set for boolean events.
	Value *bool `json:"value,omitempty"`
	// State is set for state messages.
	State *StateBody `json:"state,omitempty"`
}

func newStateBody(snap security.Snapshot) *StateBody {
	return &StateBody{
		CurrentMode:    snap.CurrentMode.String(),
		TargetMode:     snap.TargetMode.String(),
		DelayArming:    snap.DelayArming,
		Arming:         snap.Arming,
		SirenActive:    snap.SirenActive,
		TriggerPending: snap.TriggerPending,
	}
}

func stateMessage(snap security.Snapshot) Message {
	return Message{
		ID:    uuid.NewString(),
		Type:  MessageTypeState,
		State: newStateBody(snap),
	}
}

func eventMessage(e engine.Event) Message {
	msg := Message{
		ID:   uuid.NewString(),
		Type: e.Type.String(),
	}

	switch e.Type {
	case engine.EventCurrentState, engine.EventTargetState:
		msg.Mode = e.Mode.String()
	case engine.EventSirenReset:
	default:
		value := e.Value
		msg.Value = &value
	}

	return msg
}
