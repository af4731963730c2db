// Package accessory exposes binary properties of the security system as
// standalone accessories: the writable siren switch, the motion sensor that
// follows the siren pulse and a generic sensor input.
//
// Each accessory mirrors a value, accepts writes through the engine and
// notifies change listeners. Values change only after the engine accepts a
// write or emits the matching event.
package accessory
