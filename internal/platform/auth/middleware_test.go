package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "owner@clinic.test",
		Role:  RoleAuthenticated,
	}
}

func runJWT(t *testing.T, cfg JWTConfig, header string, next echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if next == nil {
		next = func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	}
	return JWTMiddleware(cfg)(next)(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "", nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, tt.header, nil)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, validClaims(), testSigningKey)

	var seen Identity
	var hooked bool
	cfg := JWTConfig{
		SigningKey:      testSigningKey,
		OnAuthenticated: func(_ context.Context, id Identity) { hooked = true },
	}
	err := runJWT(t, cfg, "Bearer "+token, func(c echo.Context) error {
		seen, _ = IdentityFromContext(c.Request().Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.UserID != "user-123" || seen.Email != "owner@clinic.test" {
		t.Errorf("unexpected identity: %+v", seen)
	}
	if !hooked {
		t.Error("expected OnAuthenticated to be called")
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, validClaims(), []byte("another-secret-another-secret-xx"))
	err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+token, nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Expired(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := createTestToken(t, claims, testSigningKey)
	err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+token, nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_MissingExpiry(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = nil
	token := createTestToken(t, claims, testSigningKey)
	err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+token, nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_AudienceMismatch(t *testing.T) {
	claims := validClaims()
	claims.Audience = jwt.ClaimStrings{"other"}
	token := createTestToken(t, claims, testSigningKey)
	err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Audience: "authenticated"}, "Bearer "+token, nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_DefaultsRole(t *testing.T) {
	claims := validClaims()
	claims.Role = ""
	token := createTestToken(t, claims, testSigningKey)

	var seen Identity
	runJWT(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+token, func(c echo.Context) error {
		seen, _ = IdentityFromContext(c.Request().Context())
		return nil
	})
	if seen.Role != RoleAuthenticated {
		t.Errorf("expected role %q, got %q", RoleAuthenticated, seen.Role)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Identity
	var hooked Identity
	h := DevAuthMiddleware(func(_ context.Context, id Identity) { hooked = id })(func(c echo.Context) error {
		got, _ = IdentityFromContext(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "dev-user" || got.Role != RoleAdmin {
		t.Errorf("unexpected dev identity: %+v", got)
	}
	if hooked != got {
		t.Errorf("expected hook to receive %+v, got %+v", got, hooked)
	}
	if UserIDFromContext(c.Request().Context()) != "dev-user" {
		t.Error("expected UserIDFromContext to return dev-user")
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	if uid := UserIDFromContext(context.Background()); uid != "" {
		t.Errorf("expected empty user id, got %q", uid)
	}
}
