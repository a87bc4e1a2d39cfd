// Package session carries the authenticated user's identity through a
// request. Authentication itself happens at an external provider; this
// package only verifies the bearer token it issued and exposes the result
// as an explicit session object. An absent session means unauthenticated.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session identifies the current user for the duration of one request.
type Session struct {
	UserID   string
	Email    string
	JoinedAt time.Time
}

// Claims are the JWT claims the auth provider signs into its tokens.
type Claims struct {
	Email    string `json:"email"`
	JoinedAt int64  `json:"joined_at"`
	jwt.RegisteredClaims
}

// TokenExpiry is the default token lifetime.
const TokenExpiry = 7 * 24 * time.Hour

type contextKey struct{}

// Issue signs a token for the given identity. Used by tests and ops tooling;
// production tokens come from the auth provider sharing the same secret.
func Issue(secret, userID, email string, joinedAt time.Time) (string, error) {
	claims := Claims{
		Email:    email,
		JoinedAt: joinedAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the session it encodes.
func Verify(secret, tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Session{
		UserID:   claims.Subject,
		Email:    claims.Email,
		JoinedAt: time.Unix(claims.JoinedAt, 0),
	}, nil
}

// FromContext returns the session attached to ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// NewContext returns a copy of ctx carrying the session.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// Middleware verifies the Authorization bearer token, if present, and
// attaches the resulting session to the request context. Requests without a
// valid token continue unauthenticated; handlers that need an owner identity
// reject them there.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				if s, err := Verify(secret, token); err == nil {
					r = r.WithContext(NewContext(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
