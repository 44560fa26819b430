// Package auth issues and validates the session tokens players carry
// between the lobby endpoints and the game websocket.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Claims holds the JWT payload for one player session.
type Claims struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager handles session token creation and validation. Players
// are ephemeral, so a single medium-lived token replaces an access/refresh
// pair; losing it just means rejoining under a new seat.
type SessionManager struct {
	secret []byte
	expiry time.Duration
}

const defaultSessionExpiry = 24 * time.Hour

// NewSessionManager creates a SessionManager with the given secret.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		expiry: defaultSessionExpiry,
	}
}

// Session is the issued token plus its lifetime.
type Session struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// Issue creates a session token for the given player.
func (m *SessionManager) Issue(playerID, name string) (*Session, error) {
	claims := &Claims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   playerID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresIn: int(m.expiry.Seconds())}, nil
}

// Validate parses and validates a session token, returning the claims.
func (m *SessionManager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
