// Package notify delivers security system notifications to side effects:
// audio playback, shell commands, HTTP webhooks and Lua scripts.
//
// The Dispatcher gives every Notifier its own ordered queue and worker, so a
// slow or failing notifier never delays the engine or the other notifiers.
// Failures are logged and dropped.
package notify
