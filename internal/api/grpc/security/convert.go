package security

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// Snapshot field names on the wire.
const (
	FieldCurrentMode    = "current_mode"
	FieldTargetMode     = "target_mode"
	FieldDelayArming    = "delay_arming"
	FieldArming         = "arming"
	FieldSirenActive    = "siren_active"
	FieldTriggerPending = "trigger_pending"
)

// ToStruct converts a snapshot to its wire representation.
func ToStruct(snap domain.Snapshot) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldCurrentMode:    structpb.NewStringValue(snap.CurrentMode.String()),
			FieldTargetMode:     structpb.NewStringValue(snap.TargetMode.String()),
			FieldDelayArming:    structpb.NewBoolValue(snap.DelayArming),
			FieldArming:         structpb.NewBoolValue(snap.Arming),
			FieldSirenActive:    structpb.NewBoolValue(snap.SirenActive),
			FieldTriggerPending: structpb.NewBoolValue(snap.TriggerPending),
		},
	}
}

// FromStruct converts the wire representation back to a snapshot.
func FromStruct(s *structpb.Struct) (domain.Snapshot, error) {
	fields := s.GetFields()

	current, err := domain.ParseMode(fields[FieldCurrentMode].GetStringValue())
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", FieldCurrentMode, err)
	}

	target, err := domain.ParseMode(fields[FieldTargetMode].GetStringValue())
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", FieldTargetMode, err)
	}

	return domain.Snapshot{
		State: domain.State{
			CurrentMode: current,
			TargetMode:  target,
			DelayArming: fields[FieldDelayArming].GetBoolValue(),
		},
		Arming:         fields[FieldArming].GetBoolValue(),
		SirenActive:    fields[FieldSirenActive].GetBoolValue(),
		TriggerPending: fields[FieldTriggerPending].GetBoolValue(),
	}, nil
}
