package version

import (
	"fmt"
	"runtime"
)

// Product names the software in user agents and MQTT discovery.
const Product = "homebridge-securitysystem"

// Build metadata, set with -ldflags "-X <module>/internal/version.Version=...".
var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the bare version.
func Short() string {
	return Version
}

// Full returns the line printed by the version subcommand.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s/%s)",
		Product, Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent returns the HTTP user agent of outgoing requests.
func UserAgent() string {
	return Product + "/" + Version
}
