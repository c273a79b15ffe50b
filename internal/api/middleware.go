package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reeys/reeys-backend/internal/apperr"
)

// AuthContext is the verified identity attached to authenticated requests.
type AuthContext struct {
	UID   string
	Email string
	Name  string
}

type contextKey struct{}

var authContextKey = contextKey{}

func authFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey).(AuthContext)
	return auth, ok
}

// authMiddleware verifies the bearer token and injects the AuthContext.
// Identity issuance lives outside this service; only HS256 tokens signed with
// the shared secret are accepted.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			s.writeError(w, apperr.New(apperr.Unauthenticated, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			s.writeError(w, apperr.New(apperr.Unauthenticated, "Invalid token"))
			return
		}

		auth := AuthContext{
			UID:   claimString(claims, "sub"),
			Email: claimString(claims, "email"),
			Name:  claimString(claims, "name"),
		}
		if auth.UID == "" {
			s.writeError(w, apperr.New(apperr.Unauthenticated, "Token has no subject"))
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
