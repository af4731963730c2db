// Package checker polls a running security system and reports every state
// change, optionally exiting once the alarm sounds so shell scripts can react.
package checker
