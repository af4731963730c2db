// Package mqtt bridges the security system to an MQTT broker with Home
// Assistant discovery: an alarm control panel, the siren switch, the siren
// motion sensor, the arming indicator, the delay-arming switch and an
// external sensor input.
package mqtt
