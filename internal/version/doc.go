// Package version reports which build is running: the cobra version
// subcommand of both binaries, the webhook User-Agent and the software
// version in MQTT discovery all read from here.
package version
