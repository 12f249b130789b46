package service

import (
	"fmt"
	"time"

	"taskboard-api/core/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PurposeCalendar tags state tokens minted for the calendar connection flow.
// Decoding rejects tokens minted for any other purpose, so a state value
// cannot be replayed across flows.
const PurposeCalendar = "calendar"

// StateClaims is what the OAuth state parameter carries across the redirect
// round trip.
type StateClaims struct {
	UserID  uuid.UUID
	Purpose string
}

// StateTokenCodec signs and verifies the anti-forgery state value. The token
// is ephemeral: decoded and discarded within a single callback request.
type StateTokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateTokenCodec(secret string) *StateTokenCodec {
	return &StateTokenCodec{
		secret: []byte(secret),
		ttl:    constants.StateTokenTTL,
		now:    time.Now,
	}
}

func (c *StateTokenCodec) Encode(userID uuid.UUID, purpose string) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub":     userID.String(),
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(c.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *StateTokenCodec) Decode(state string) (*StateClaims, error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid state token")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	purpose, _ := claims["purpose"].(string)
	return &StateClaims{UserID: userID, Purpose: purpose}, nil
}
