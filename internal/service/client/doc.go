// Package client implements the securityctl operations.
//
// Every operation connects to the security system daemon over gRPC, performs
// one call with the local actor attached and reports the resulting state.
// With Retry set, calls failing because the daemon is unreachable are
// repeated until they succeed or the context is cancelled.
package client
