// Package state persists the security system State.
//
// Two Repository implementations are provided: FileRepository stores the
// state as a JSON document on disk and BoltRepository keeps it in a bbolt
// database. Both encode the same document via protobuf JSON. Writer adapts a
// Repository to the engine's non-blocking persistence hook.
package state
