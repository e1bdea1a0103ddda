package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-123"

func newChecker() *JWTChecker {
	return NewJWTChecker(testSecret, map[string][]string{
		CapabilityShow: {"ROLE_ADMIN"},
	})
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func issueToken(t *testing.T, secret, subject string, roles []string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	return signToken(t, secret, Claims{
		Roles: roles,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	})
}

func TestJWTCheckerValidAdminToken(t *testing.T) {
	checker := newChecker()
	token := issueToken(t, testSecret, "alice", []string{"ROLE_USER", "ROLE_ADMIN"}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/advertisement/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.NoError(t, checker.Authorize(req, CapabilityShow))
}

func TestJWTCheckerTokenCookie(t *testing.T) {
	checker := newChecker()
	token := issueToken(t, testSecret, "alice", []string{"ROLE_ADMIN"}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/advertisement/1", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	assert.NoError(t, checker.Authorize(req, CapabilityShow))
}

func TestJWTCheckerMissingRole(t *testing.T) {
	checker := newChecker()
	token := issueToken(t, testSecret, "bob", []string{"ROLE_USER"}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/advertisement/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.ErrorIs(t, checker.Authorize(req, CapabilityShow), ErrForbidden)
}

func TestJWTCheckerRejectsBadTokens(t *testing.T) {
	checker := newChecker()
	foreign := issueToken(t, "wrong-secret", "eve", []string{"ROLE_ADMIN"}, time.Hour)
	expired := issueToken(t, testSecret, "alice", []string{"ROLE_ADMIN"}, -time.Minute)
	neverExpires := signToken(t, testSecret, Claims{
		Roles:            []string{"ROLE_ADMIN"},
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "alice"},
	})

	for name, header := range map[string]string{
		"none":    "",
		"garbage": "Bearer invalid-jwt-here",
		"foreign": "Bearer " + foreign,
		"expired": "Bearer " + expired,
		"no exp":  "Bearer " + neverExpires,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/advertisement/1", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			assert.ErrorIs(t, checker.Authorize(req, CapabilityShow), ErrUnauthenticated)
		})
	}
}

func TestUnmappedCapabilityIsOpen(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NoError(t, newChecker().Authorize(req, "advertisement_list"))
	assert.NoError(t, AllowAll{}.Authorize(req, CapabilityShow))
}
