package session

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// claims is the signed cookie payload
type claims struct {
	UserID               uint    `json:"uid,omitempty"`     // Logged-in user
	Email                string  `json:"email,omitempty"`   // Logged-in email
	Flashes              []Flash `json:"flashes,omitempty"` // Pending notices
	jwt.RegisteredClaims         // Standard JWT claims, ID holds the session ID
}

// encode signs the session into a token string valid until expiresAt
func encode(s *Session, key []byte, expiresAt time.Time) (string, error) {
	c := claims{
		UserID:  s.UserID,
		Email:   s.Email,
		Flashes: s.flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c) // Create token with claims
	return token.SignedString(key)                        // Sign the token with the key
}

// decode parses and validates a token string; expiry is checked by the parser
func decode(tokenStr string, key []byte) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(token *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return &Session{
		ID:        c.ID,
		UserID:    c.UserID,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt.Time,
		flashes:   c.Flashes,
	}, nil
}
