// Package security holds the domain vocabulary of the security system:
// modes, the state snapshot persisted between runs, notifications handed to
// side-effect dispatchers and the errors returned when a request is refused.
package security
