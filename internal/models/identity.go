package models

// Identity describes the caller of a request. The zero value is the
// anonymous caller.
type Identity struct {
	// ID is the user identifier; empty when unauthenticated.
	ID string
	// IsBusiness grants card creation.
	IsBusiness bool
	// IsAdmin grants directory administration.
	IsAdmin bool
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// Authenticated reports whether the identity belongs to a logged-in user.
func (i Identity) Authenticated() bool {
	return i.ID != ""
}
