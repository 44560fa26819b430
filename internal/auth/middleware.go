package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const playerIDKey contextKey = "player_id"

// Middleware returns an HTTP middleware that validates session tokens.
// The token comes from the Authorization header (Bearer scheme), or from
// the "token" query parameter for websocket clients, which cannot set
// custom headers from a browser. The player ID lands in the request
// context.
func Middleware(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractToken(r)
			if err != nil {
				http.Error(w, `{"error":"missing authorization token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := sessions.Validate(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), playerIDKey, claims.PlayerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", ErrInvalidToken
		}
		return parts[1], nil
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", ErrMissingToken
}

// PlayerIDFromContext extracts the authenticated player ID from the
// request context.
func PlayerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerIDKey).(string)
	return id
}
