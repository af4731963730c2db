package security

// Actor identifies who requested a change through a control surface.
type Actor struct {
	// Hostname is the machine the request came from.
	Hostname string
	// Username is the system user who made the request.
	Username string
}

// Clone returns a copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String returns "username@hostname".
func (a *Actor) String() string {
	if a == nil {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}
