// Package engine implements the security system state engine: current and
// target modes, the arm delay, sensor-triggered alarm escalation, the siren
// pulse and the automatic reset.
//
// All state lives in an Engine and is guarded by one lock. Public operations,
// timer callbacks and event delivery run under that lock, so transitions are
// observed atomically. Side effects leave the engine through three
// non-blocking seams: the Dispatcher (audio, commands, webhooks), the
// Persister (state storage) and event subscribers (property surfaces such as
// the MQTT bridge or the siren switch).
package engine
