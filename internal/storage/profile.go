package storage

import "time"

// MediaURLExpiration is how long signed media URLs stay valid.
const MediaURLExpiration = 7 * 24 * time.Hour

// Profile is a named, immutable storage configuration.
type Profile struct {
	Name      string
	Container string

	// OverwriteOnConflict controls what happens when a file is saved under a
	// name that already exists: replace it, or pick a new free name.
	OverwriteOnConflict bool

	// Expiration is the lifetime of generated URLs. Zero means URLs are
	// public and never expire.
	Expiration time.Duration
}

// Static is the profile for collected static assets.
func Static() Profile {
	return Profile{
		Name:                "static",
		Container:           "static",
		OverwriteOnConflict: true,
	}
}

// Media is the profile for user-uploaded files.
func Media() Profile {
	return Profile{
		Name:                "media",
		Container:           "media",
		OverwriteOnConflict: false,
		Expiration:          MediaURLExpiration,
	}
}

// Profiles returns every profile in a stable order.
func Profiles() []Profile {
	return []Profile{Static(), Media()}
}

// ExpirationSeconds returns the URL lifetime in seconds, and false when URLs
// never expire.
func (p Profile) ExpirationSeconds() (int64, bool) {
	if p.Expiration <= 0 {
		return 0, false
	}
	return int64(p.Expiration / time.Second), true
}

// Public reports whether objects in this profile are served without signing.
func (p Profile) Public() bool {
	return p.Expiration <= 0
}
