package auth

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// CapabilityShow guards viewing a single advertisement.
const CapabilityShow = "advertisement_show"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Checker decides whether the caller behind r holds a capability.
type Checker interface {
	Authorize(r *http.Request, capability string) error
}

type AllowAll struct{}

func (AllowAll) Authorize(*http.Request, string) error { return nil }

type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwtlib.RegisteredClaims
}

func (c *Claims) HasAnyRole(roles []string) bool {
	if c.Role != "" && slices.Contains(roles, c.Role) {
		return true
	}
	for _, r := range c.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

// JWTChecker reads an HS256 token from the Authorization header or the "token" cookie
// and grants a capability when one of the token's roles is mapped to it.
type JWTChecker struct {
	secret       []byte
	capabilities map[string][]string
}

func NewJWTChecker(secret string, capabilities map[string][]string) *JWTChecker {
	return &JWTChecker{
		secret:       []byte(secret),
		capabilities: capabilities,
	}
}

func (c *JWTChecker) Authorize(r *http.Request, capability string) error {
	required := c.capabilities[capability]
	if len(required) == 0 {
		return nil
	}

	raw := tokenFromRequest(r)
	if raw == "" {
		return ErrUnauthenticated
	}

	claims, err := c.Parse(raw)
	if err != nil {
		return ErrUnauthenticated
	}

	if !claims.HasAnyRole(required) {
		return ErrForbidden
	}
	return nil
}

func (c *JWTChecker) Parse(raw string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(raw, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
