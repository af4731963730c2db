//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
)

// unknownUser is reported when no username can be determined.
const unknownUser = "unknown"

// DetectActor identifies who runs the control client.
func DetectActor() (*security.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	return &security.Actor{
		Hostname: hostname,
		Username: username(user.Current, os.Getenv),
	}, nil
}

// username looks the user up in the account database and falls back to the
// environment, as minimal containers often have no passwd entry.
func username(lookup func() (*user.User, error), getenv func(string) string) string {
	if u, err := lookup(); err == nil && u.Username != "" {
		return u.Username
	}

	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if name := strings.TrimSpace(getenv(key)); name != "" {
			return name
		}
	}

	return unknownUser
}
