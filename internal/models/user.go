package models

// User is a directory entry for an authenticated identity.
//
// The ID is the identity provider's subject; splitledger never issues or
// verifies credentials itself, it only keeps the profile fields below.
type User struct {
	// ID is the identity provider's opaque user identifier.
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address. Indexed for member lookup.
	Email string

	// Phone is optional.
	Phone string

	// ImageRef is an opaque blob storage reference for the profile picture.
	// It is resolved to a fetchable URL on read, never stored as a URL.
	ImageRef string

	// CreatedAt is the Unix timestamp when the user was first seen.
	CreatedAt int64
}

// Profile is the user as returned to clients, with the image resolved.
type Profile struct {
	User
	ImageURL string
}
