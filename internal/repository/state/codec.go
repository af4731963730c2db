package state

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// Document field names. Modes are stored by their numeric value.
const (
	fieldCurrentState = "currentState"
	fieldTargetState  = "targetState"
	fieldDelayArming  = "delayArming"
)

// ErrCorrupted is returned when a stored document cannot be turned into a State.
var ErrCorrupted = errors.New("stored state corrupted")

// encode converts the state into its JSON document.
func encode(state *security.State) ([]byte, error) {
	doc := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldCurrentState: structpb.NewNumberValue(float64(state.CurrentMode)),
			fieldTargetState:  structpb.NewNumberValue(float64(state.TargetMode)),
			fieldDelayArming:  structpb.NewBoolValue(state.DelayArming),
		},
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return data, nil
}

// decode converts a JSON document into the state.
func decode(data []byte) (*security.State, error) {
	var doc structpb.Struct
	if err := protojson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	current, err := decodeMode(&doc, fieldCurrentState)
	if err != nil {
		return nil, err
	}

	target, err := decodeMode(&doc, fieldTargetState)
	if err != nil {
		return nil, err
	}

	return &security.State{
		CurrentMode: current,
		TargetMode:  target,
		DelayArming: doc.GetFields()[fieldDelayArming].GetBoolValue(),
	}, nil
}

func decodeMode(doc *structpb.Struct, field string) (security.Mode, error) {
	value, ok := doc.GetFields()[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrCorrupted, field)
	}

	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || number.NumberValue != math.Trunc(number.NumberValue) ||
		number.NumberValue < 0 || number.NumberValue > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %s is not a mode", ErrCorrupted, field)
	}

	mode := security.Mode(number.NumberValue)
	if !mode.IsValid() {
		return 0, fmt.Errorf("%w: %s: %w", ErrCorrupted, field, security.ErrInvalidMode)
	}

	return mode, nil
}
