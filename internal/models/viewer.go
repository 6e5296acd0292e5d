package models

// Viewer identifies who is looking at a page: an anonymous visitor or a signed-in user.
// The zero value is anonymous.
type Viewer struct {
	id            uint
	authenticated bool
}

// Anonymous returns the viewer for requests without a valid identity.
func Anonymous() Viewer {
	return Viewer{}
}

// Authenticated returns the viewer for a signed-in user.
func Authenticated(id uint) Viewer {
	return Viewer{id: id, authenticated: true}
}

// UserID returns the viewer's user id; ok is false for anonymous viewers.
func (v Viewer) UserID() (id uint, ok bool) {
	return v.id, v.authenticated
}

// IsAuthenticated reports whether the viewer is signed in.
func (v Viewer) IsAuthenticated() bool {
	return v.authenticated
}

// Is reports whether the viewer is the signed-in user with the given id.
func (v Viewer) Is(userID uint) bool {
	return v.authenticated && v.id == userID
}
