package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-signing"

	token, err := GenerateAccessToken("svc-deploy", RoleEditor, secret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "svc-deploy" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "svc-deploy")
	}
	if claims.Role != RoleEditor {
		t.Errorf("Role = %q, want %q", claims.Role, RoleEditor)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestGenerateAccessToken_Invalid(t *testing.T) {
	if _, err := GenerateAccessToken("", RoleViewer, "secret", 15); err == nil {
		t.Error("GenerateAccessToken() should fail with empty subject")
	}

	if _, err := GenerateAccessToken("svc", Role("superuser"), "secret", 15); err == nil {
		t.Error("GenerateAccessToken() should fail with unknown role")
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("svc-ci", RoleViewer, "secret", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	ttl := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if ttl != 15*time.Minute {
		t.Errorf("default TTL = %v, want 15m", ttl)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("svc-ci", RoleViewer, "correct-secret", 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	_, err = ParseToken(token, "wrong-secret")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc-ci",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-30 * time.Minute)),
			ID:        "jti-expired",
		},
		Role: RoleViewer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}

	_, err = ParseToken(signed, "secret")
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ParseToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestParseToken_RejectsUnsignedToken(t *testing.T) {
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "svc-ci",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleViewer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building alg=none token: %v", err)
	}

	if _, err := ParseToken(signed, "secret"); err == nil {
		t.Error("ParseToken() should reject alg=none tokens")
	}
}

func TestParseToken_MissingClaims(t *testing.T) {
	sign := func(c CustomClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	t.Run("no subject", func(t *testing.T) {
		token := sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
			Role:             RoleViewer,
		})
		if _, err := ParseToken(token, "secret"); err == nil {
			t.Error("ParseToken() should reject a token without a subject")
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		token := sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "svc-ci", ExpiresAt: future},
			Role:             Role("root"),
		})
		if _, err := ParseToken(token, "secret"); err == nil {
			t.Error("ParseToken() should reject a token with an unrecognised role")
		}
	})
}

func TestParseToken_Malformed(t *testing.T) {
	for _, tokenString := range []string{"", "abc.def", "not-a-valid-jwt"} {
		if _, err := ParseToken(tokenString, "secret"); err == nil {
			t.Errorf("ParseToken(%q) should fail", tokenString)
		}
	}
}

func TestRole_CanMutate(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleViewer, false},
		{RoleEditor, true},
		{Role("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.CanMutate(); got != tt.want {
				t.Errorf("CanMutate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(RoleViewer) || !IsValidRole(RoleEditor) {
		t.Error("viewer and editor should be valid roles")
	}
	if IsValidRole(Role("admin")) {
		t.Error("unrecognised role should be invalid")
	}
}
