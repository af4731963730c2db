package security

import (
	"fmt"
	"strings"
)

// Mode is an arming mode of the security system.
type Mode uint8

const (
	// ModeHome arms the perimeter while people are inside (stay arm).
	ModeHome Mode = iota
	// ModeAway arms everything while the premises are empty.
	ModeAway
	// ModeNight arms for the night.
	ModeNight
	// ModeOff disarms the system.
	ModeOff
	// ModeTriggered means the alarm is sounding. Only a current mode may hold it.
	ModeTriggered
)

// TargetModes lists every mode that may be requested as a target, in display order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var TargetModes = []Mode{ModeHome, ModeAway, ModeNight, ModeOff}

// modeNames maps modes to their lowercase configuration names.
//
//nolint:gochecknoglobals // Read-only lookup table.
var modeNames = map[Mode]string{
	ModeHome:      "home",
	ModeAway:      "away",
	ModeNight:     "night",
	ModeOff:       "off",
	ModeTriggered: "triggered",
}

// ParseMode converts a case-insensitive mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for mode, n := range modeNames {
		if n == name {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// String returns the lowercase mode name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Title returns the capitalized mode name used in log lines.
func (m Mode) Title() string {
	name := m.String()

	return strings.ToUpper(name[:1]) + name[1:]
}

// IsValid reports whether m is one of the known modes.
func (m Mode) IsValid() bool {
	_, ok := modeNames[m]

	return ok
}

// IsTarget reports whether m may be requested as a target mode.
func (m Mode) IsTarget() bool {
	return m.IsValid() && m != ModeTriggered
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
