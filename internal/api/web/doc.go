// Package web serves the HTTP control surface of the security system.
//
// Plain GET endpoints (/home, /away, /night, /off, /triggered) request modes
// the way simple home automation tools expect, /state returns the snapshot
// as JSON, /sensor reports sensor activity and /ws streams every engine
// event to websocket clients through a broadcasting hub.
package web
