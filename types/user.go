package types

import "time"

// Supported user roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
// It is keyed by the subject id issued by the identity provider.
type User struct {
	// ID is the stable subject id issued by the identity provider.
	ID string `json:"id"`

	// Email is the user's email address. It is not an indexed key, so
	// lookups by email scan every user record.
	Email string `json:"email"`

	// Username is the display name chosen by the user. Posts and comments
	// copy it at creation time and never refresh it.
	Username string `json:"username"`

	// Role indicates the user's authorization level ("user" or "admin").
	Role string `json:"role"`

	// Avatar is the URL of the user's profile image, if any.
	Avatar string `json:"avatar"`

	// Bio is a free-form profile description.
	Bio string `json:"bio"`

	// CreatedAt is the timestamp when the user record was written at signup.
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the supported roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
