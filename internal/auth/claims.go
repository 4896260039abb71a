package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTLMinutes applies when a caller passes a zero or
// negative TTL.
const defaultTokenTTLMinutes = 15

// CustomClaims carries the client's role alongside the registered JWT
// claims. The subject names the service client and ends up in audit
// entries as the actor.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// GenerateAccessToken mints a signed HS256 token for a service client.
// Verification is by signature alone; there is no per-request database
// lookup, which keeps token checks off the blueprint read path.
func GenerateAccessToken(subject string, role Role, secret string, ttlMinutes int) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}
	if !IsValidRole(role) {
		return "", fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, role)
	}
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTokenTTLMinutes
	}

	now := time.Now()
	claims := CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token's signature and expiry and returns its
// claims. Only HS256 is accepted; tokens signed any other way fail
// before the key is even consulted. Expired tokens wrap
// ErrTokenExpired, everything else wraps ErrTokenInvalid.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// validate enforces what this service requires beyond signature and
// expiry: a subject for the audit trail and a role it knows.
func (c *CustomClaims) validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !IsValidRole(c.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, c.Role)
	}
	return nil
}
