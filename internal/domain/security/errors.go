package security

import "errors"

var (
	// ErrInvalidMode is returned when a mode name or value is unknown.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrDisabledTarget is returned when the requested target mode is disabled
	// by configuration or can never be a target (Triggered).
	ErrDisabledTarget = errors.New("target mode disabled")
	// ErrNotArmed is returned when a sensor fires while the system is off
	// and off-mode events are not ignored.
	ErrNotArmed = errors.New("security system not armed")
	// ErrNotYetArmed is returned when a sensor fires during the arm delay.
	ErrNotYetArmed = errors.New("security system not armed yet")
)
