//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"os/user"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNoPasswd = errors.New("no passwd entry")

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
}

// TestUsername_Fallbacks verifies the environment and the final placeholder
// are used when the account database has no entry.
func TestUsername_Fallbacks(t *testing.T) {
	t.Parallel()

	found := func() (*user.User, error) { return &user.User{Username: "alice"}, nil }
	missing := func() (*user.User, error) { return nil, errNoPasswd }

	env := func(values map[string]string) func(string) string {
		return func(key string) string { return values[key] }
	}

	require.Equal(t, "alice", username(found, env(map[string]string{"USER": "bob"})))
	require.Equal(t, "bob", username(missing, env(map[string]string{"USER": "bob"})))
	require.Equal(t, "carol", username(missing, env(map[string]string{"LOGNAME": " carol "})))
	require.Equal(t, unknownUser, username(missing, env(nil)))
}
