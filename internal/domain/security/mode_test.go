package security

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestParseMode verifies case-insensitive parsing and rejection of unknown names.
func TestParseMode(t *testing.T) {
	t.Parallel()

	cases := map[string]Mode{
		"home":      ModeHome,
		"Away":      ModeAway,
		" NIGHT ":   ModeNight,
		"off":       ModeOff,
		"triggered": ModeTriggered,
	}
	for s, want := range cases {
		got, err := ParseMode(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseMode("vacation")
	require.ErrorIs(t, err, ErrInvalidMode)
}

// TestModeIsTarget ensures Triggered is never accepted as a target.
func TestModeIsTarget(t *testing.T) {
	t.Parallel()

	for _, m := range TargetModes {
		require.True(t, m.IsTarget(), m.String())
	}

	require.False(t, ModeTriggered.IsTarget())
	require.False(t, Mode(42).IsTarget())
	require.Equal(t, "Night", ModeNight.Title())
}

// TestModeYAML checks that modes decode from their names inside YAML documents.
func TestModeYAML(t *testing.T) {
	t.Parallel()

	var doc struct {
		Default  Mode   `yaml:"default"`
		Disabled []Mode `yaml:"disabled"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("default: away\ndisabled: [night, home]\n"), &doc))
	require.Equal(t, ModeAway, doc.Default)
	require.Equal(t, []Mode{ModeNight, ModeHome}, doc.Disabled)

	require.Error(t, yaml.Unmarshal([]byte("default: sleepy\n"), &doc))
}

// TestNotificationName verifies alert notifications override the mode name.
func TestNotificationName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "away", Notification{Kind: KindTarget, Mode: ModeAway}.Name())
	require.Equal(t, AlertName, Notification{Kind: KindCurrent, Alert: true}.Name())
	require.Equal(t, "target", KindTarget.String())
}
