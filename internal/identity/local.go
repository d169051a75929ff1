package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/kv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = 24 * time.Hour
	minPasswordLength = 6

	credentialPrefix = "auth:credential:"
	revokedPrefix    = "auth:revoked:"
)

type credential struct {
	Subject      string            `json:"subject"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"passwordHash"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// revocation marks a signed-out token id until the token itself expires.
type revocation struct {
	Subject   string    `json:"subject"`
	RevokedAt time.Time `json:"revokedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LocalProvider keeps bcrypt credentials in the key-value namespace and
// issues HS256 JWT sessions. Signing out stores a revocation marker for the
// token id.
type LocalProvider struct {
	kv       kv.Store
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewLocalProvider(store kv.Store, jwtSecret string, tokenTTL time.Duration) *LocalProvider {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &LocalProvider{
		kv:       store,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (string, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}

	key := credentialPrefix + email
	if _, err := p.kv.Get(ctx, key); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("check credential: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	cred := credential{
		Subject:      uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
		Metadata:     metadata,
		CreatedAt:    p.now().UTC(),
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}
	if err := p.kv.Set(ctx, key, raw); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}
	return cred.Subject, nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, email string) error {
	if err := p.kv.Delete(ctx, credentialPrefix+normalizeEmail(email)); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	raw, err := p.kv.Get(ctx, credentialPrefix+normalizeEmail(email))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load credential: %w", err)
	}

	var cred credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Session{}, fmt.Errorf("decode credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	now := p.now()
	expiresAt := now.Add(p.tokenTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   cred.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	return Session{
		Token:     token,
		Subject:   cred.Subject,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (p *LocalProvider) Verify(ctx context.Context, token string) (string, error) {
	claims, err := p.parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	if _, err := p.kv.Get(ctx, revokedPrefix+claims.ID); err == nil {
		return "", ErrInvalidToken
	} else if !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	return claims.Subject, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return ErrInvalidToken
	}
	now := p.now().UTC()
	marker, err := json.Marshal(revocation{
		Subject:   claims.Subject,
		RevokedAt: now,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	})
	if err != nil {
		return err
	}
	if err := p.kv.Set(ctx, revokedPrefix+claims.ID, marker); err != nil {
		return err
	}
	if err := p.pruneRevoked(ctx, now); err != nil {
		log.Printf("identity: prune revocation markers: %v", err)
	}
	return nil
}

// pruneRevoked drops markers whose tokens have expired. Verify already
// rejects those tokens on their exp claim.
func (p *LocalProvider) pruneRevoked(ctx context.Context, now time.Time) error {
	entries, err := p.kv.List(ctx, revokedPrefix)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		var marker revocation
		if err := json.Unmarshal(entry.Value, &marker); err != nil {
			continue
		}
		expiresAt := marker.ExpiresAt
		if expiresAt.IsZero() {
			expiresAt = marker.RevokedAt.Add(p.tokenTTL)
		}
		if now.Before(expiresAt) {
			continue
		}
		if err := p.kv.Delete(ctx, entry.Key); err != nil {
			return err
		}
	}
	return nil
}

func (p *LocalProvider) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
