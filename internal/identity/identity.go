// Package identity issues and verifies caller credentials.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmailTaken         = errors.New("a user with this email address has already been registered")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("unable to validate email address: invalid format")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Session is a bearer credential issued by SignIn.
type Session struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider is the identity capability set the content layer depends on.
type Provider interface {
	// CreateAccount registers a credential and returns its stable subject id.
	CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (string, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	// Verify resolves a bearer token to its subject id.
	Verify(ctx context.Context, token string) (string, error)
	SignOut(ctx context.Context, token string) error
	// DeleteAccount removes the credential registered for email. Removing an
	// unknown email is not an error.
	DeleteAccount(ctx context.Context, email string) error
}
