// Package common holds what every securityctl command needs to reach the
// daemon: a gRPC client carrying a call timeout and the local actor, and
// detection of that actor (hostname and user) for the daemon's audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
