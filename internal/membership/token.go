// internal/membership/token.go
package membership

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"libris/internal/api"
	"libris/internal/model"
)

// TokenExpiry is the default session token lifetime.
const TokenExpiry = 24 * time.Hour

// Claims are the JWT claims carried by a session token.
type Claims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for an authenticated user.
func IssueToken(secret string, user *model.User) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
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

// ParseToken validates a session token and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
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
	return claims, nil
}

type contextKey struct{}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(model.Actor)
	return actor, ok
}

// WithActor attaches an actor to the context. Exposed for tests.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// RequireAuth is chi middleware that validates the bearer token and puts
// the actor identity on the request context.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				api.WriteError(w, fmt.Errorf("%w: missing bearer token", model.ErrForbidden))
				return
			}

			claims, err := ParseToken(secret, tokenStr)
			if err != nil {
				api.WriteError(w, fmt.Errorf("%w: %v", model.ErrForbidden, err))
				return
			}

			actor := model.Actor{UserID: claims.UserID, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
