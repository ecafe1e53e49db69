// Package auth turns bearer tokens into caller identities.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
)

func (r Role) valid() bool {
	return r == RoleAdmin || r == RoleCustomer || r == RoleDelivery
}

type Identity struct {
	UserID int64
	Role   Role
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// TokenType separates short-lived access tokens from refresh tokens; each
// is accepted only where its type is expected.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type Claims struct {
	Role Role      `json:"role"`
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Authenticator signs and verifies HS256 tokens. The subject claim holds
// the numeric user id.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs an access token.
func (a *Authenticator) Issue(id Identity, ttl time.Duration) (string, error) {
	return a.issue(id, TokenAccess, ttl)
}

// IssuePair signs an access token and a refresh token for id.
func (a *Authenticator) IssuePair(id Identity, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, err := a.issue(id, TokenAccess, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.issue(id, TokenRefresh, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (a *Authenticator) issue(id Identity, typ TokenType, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: id.Role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies an access token.
func (a *Authenticator) Parse(raw string) (Identity, error) {
	return a.parse(raw, TokenAccess)
}

// ParseRefresh verifies a refresh token.
func (a *Authenticator) ParseRefresh(raw string) (Identity, error) {
	return a.parse(raw, TokenRefresh)
}

func (a *Authenticator) parse(raw string, want TokenType) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return Identity{}, fmt.Errorf("%w: %q token where %q expected", ErrInvalidToken, claims.Type, want)
	}
	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	if !claims.Role.valid() {
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			deny(w, http.StatusUnauthorized, ErrNoToken)
			return
		}
		id, err := a.Parse(raw)
		if err != nil {
			deny(w, http.StatusUnauthorized, ErrInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole lets through only callers holding one of roles. It must run
// after Middleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, ErrNoToken)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, errors.New("permission denied"))
		})
	}
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func deny(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "code": code})
}

// RoleOf maps the users table's role column to a Role. Unknown values map
// to customer.
func RoleOf(v int16) Role {
	switch v {
	case 1:
		return RoleAdmin
	case 3:
		return RoleDelivery
	}
	return RoleCustomer
}
