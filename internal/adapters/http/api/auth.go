package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userCtxKey = contextKey("user")

// optionalAuth resolves the user id from a bearer token when one is
// presented. A missing or invalid token degrades to a guest session
// rather than failing the request; only the history surface insists on
// a real identity.
func (s *Server) optionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := s.userFromToken(r)
			if userID != "" {
				r = r.WithContext(context.WithValue(r.Context(), userCtxKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests without a resolved user.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userIDFrom(r) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) userFromToken(r *http.Request) string {
	if s.jwtSecret == "" {
		return ""
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	tokenStr := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		return sub
	}
	id, _ := claims["id"].(string)
	return id
}

// userIDFrom returns the authenticated user id, empty for guests.
func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userCtxKey).(string)
	return id
}
