package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is missing, malformed, or fails
// signature verification. Callers treat it as "anonymous", never as a fault.
var ErrInvalidToken = errors.New("invalid session token")

// Claims carries the authenticated user id inside the signed token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// Codec issues and verifies self-contained session tokens. The signing
// secret is the only root of trust: there is no server-side session state,
// and tokens carry no expiry.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec signing with secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Issue returns a signed token bound to userID, safe to use as a cookie value.
func (c *Codec) Issue(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: userID})
	return token.SignedString(c.secret)
}

// Verify checks the token signature and returns the embedded user id.
// Any malformed or tampered input yields ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}
