// Package config defines the security system settings shared by the daemon
// and the control client, and provides helpers to load, validate and save
// them in YAML format.
//
// Validate fills defaults, parses mode names and checks addresses, so a
// loaded Config is always ready to use.
package config
