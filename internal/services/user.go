package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/internal/identity"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// SignupInput carries the fields accepted at account creation.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// UserPatch carries the profile fields a user may change. Nil fields are
// left untouched.
type UserPatch struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
}

// LoginResult is a fresh session together with the caller's profile.
type LoginResult struct {
	identity.Session
	User types.User `json:"user"`
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	repo     UserRepository
	identity identity.Provider
	now      func() time.Time
}

func NewUserService(repo UserRepository, provider identity.Provider) *UserService {
	return &UserService{repo: repo, identity: provider, now: time.Now}
}

// Signup creates the credential with the identity provider, then writes the
// user record under the returned subject id.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Avatar = strings.TrimSpace(in.Avatar)
	if in.Email == "" || in.Password == "" || in.Username == "" {
		return "", apperr.Validation("email, password and username are required")
	}

	subject, err := s.identity.CreateAccount(ctx, in.Email, in.Password, map[string]string{
		"username": in.Username,
	})
	if err != nil {
		return "", apperr.AuthProvider(err)
	}

	_, err = s.repo.Create(ctx, types.User{
		ID:        subject,
		Email:     in.Email,
		Username:  in.Username,
		Role:      types.RoleUser,
		Avatar:    in.Avatar,
		Bio:       "",
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		// Drop the credential so the email can sign up again.
		if rollbackErr := s.identity.DeleteAccount(ctx, in.Email); rollbackErr != nil {
			log.Printf("signup: remove credential for %s after failed user write: %v", subject, rollbackErr)
		}
		return "", apperr.Storage(err)
	}
	return subject, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Validation("email and password are required")
	}

	session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return LoginResult{}, apperr.Authentication(err.Error())
		}
		return LoginResult{}, apperr.AuthProvider(err)
	}

	user, err := s.repo.GetByID(ctx, session.Subject)
	if err != nil {
		return LoginResult{}, lookupError(err, "user")
	}
	return LoginResult{Session: session, User: user}, nil
}

func (s *UserService) Logout(ctx context.Context, token string) error {
	if err := s.identity.SignOut(ctx, token); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return apperr.Authentication(err.Error())
		}
		return apperr.AuthProvider(err)
	}
	return nil
}

// Authenticate resolves a bearer token to the caller's subject id.
func (s *UserService) Authenticate(ctx context.Context, token string) (string, error) {
	subject, err := s.identity.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return "", apperr.Authentication(err.Error())
		}
		return "", apperr.AuthProvider(err)
	}
	return subject, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}
	return user, nil
}

// GetByEmail scans every user record; email is not an indexed key.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return types.User{}, apperr.Validation("email is required")
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}
	return user, nil
}

// Update merges patch onto the caller's own record. Concurrent updates of
// the same user can overwrite each other.
func (s *UserService) Update(ctx context.Context, callerID, id string, patch UserPatch) (types.User, error) {
	if err := requireCaller(callerID); err != nil {
		return types.User{}, err
	}
	if callerID != id {
		return types.User{}, apperr.Authorization("you can only update your own profile")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return types.User{}, apperr.Validation("username cannot be empty")
		}
		user.Username = username
	}
	if patch.Avatar != nil {
		user.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, lookupError(err, "user")
	}
	return updated, nil
}

// loadCaller loads the record of an authenticated caller. A verified
// identity without a user record is treated as unauthenticated.
func loadCaller(ctx context.Context, users UserRepository, callerID string) (types.User, error) {
	if err := requireCaller(callerID); err != nil {
		return types.User{}, err
	}
	user, err := users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.Authentication("user profile not found")
		}
		return types.User{}, apperr.Storage(err)
	}
	return user, nil
}
