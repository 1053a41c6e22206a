// Package auth issues and checks the seat tokens that bind a websocket
// client to one or both players of a session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/carrom/internal/game"
)

var ErrInvalidToken = errors.New("invalid seat token")

// SeatClaims is what a verified seat token grants.
type SeatClaims struct {
	SessionID string
	Seat      game.Seat
	ExpiresAt time.Time
}

// IssueSeatToken signs an HS256 token for one seat of a session.
func IssueSeatToken(secret, sessionID string, seat game.Seat, ttl time.Duration) (string, time.Time, error) {
	if !seat.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown seat %q", seat)
	}
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"seat":       string(seat),
		"exp":        jwt.NewNumericDate(exp).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign seat token: %w", err)
	}
	return signed, exp, nil
}

// ParseSeatToken verifies a seat token and returns its claims.
func ParseSeatToken(secret, token string) (SeatClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return SeatClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return SeatClaims{}, ErrInvalidToken
	}
	sessionID, _ := claims["session_id"].(string)
	seat, _ := claims["seat"].(string)
	if sessionID == "" || !game.Seat(seat).Valid() {
		return SeatClaims{}, ErrInvalidToken
	}

	out := SeatClaims{SessionID: sessionID, Seat: game.Seat(seat)}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
