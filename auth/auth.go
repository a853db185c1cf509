// Package auth compares the admin secret and issues bearer tokens bound to a connection.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTTL = 12 * time.Hour
	issuer     = "nightwatch"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token is expired")
	ErrNotConfigured      = errors.New("token signing secret is not configured")
)

// Claims is the payload of an issued token.
type Claims struct {
	jwt.RegisteredClaims
	PlayerID string `json:"player_id"`
}

// Authenticator holds the shared secrets.
type Authenticator struct {
	adminSecret string
	signingKey  []byte
	ttl         time.Duration
	now         func() time.Time
}

func New(adminSecret, signingKey string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authenticator{
		adminSecret: adminSecret,
		signingKey:  []byte(signingKey),
		ttl:         ttl,
		now:         time.Now,
	}
}

// CheckAdminSecret compares the supplied secret with the configured one in constant time.
// An unset admin secret rejects everyone.
func (a *Authenticator) CheckAdminSecret(secret string) error {
	if a.adminSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(a.adminSecret)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Issue signs a token for the given connection id.
func (a *Authenticator) Issue(playerID string) (string, error) {
	if len(a.signingKey) == 0 {
		return "", ErrNotConfigured
	}
	now := a.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   playerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		PlayerID: playerID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns the connection id it was issued to.
func (a *Authenticator) Validate(token string) (string, error) {
	if len(a.signingKey) == 0 {
		return "", ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}

	var parsed Claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if parsed.PlayerID == "" {
		return "", ErrTokenInvalid
	}
	return parsed.PlayerID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// mapJWTError translates jwt library errors to package errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
