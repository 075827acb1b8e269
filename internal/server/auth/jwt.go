// Package auth implements the token service: stateless HS256 JWTs carrying
// the subject id, a token type, and the username. Validity is determined by
// signature and expiry alone; there is no server-side revocation list, which
// is a documented limitation of the design.
package auth

import (
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim. Every consumer must assert the
// expected type: a refresh token is never accepted where an access token is
// required, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload: registered claims (sub, exp) plus the token
// type and a denormalized username.
type Claims struct {
	jwt.RegisteredClaims
	Type     string `json:"type"`
	Username string `json:"username"`
}

// GenerateToken mints a signed token of the given type for userID.
func GenerateToken(userID, username, tokenType string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Type:     tokenType,
		Username: username,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of tokenString and returns its
// claims. Every failure (malformed, expired, bad signature) yields the same
// common.ErrInvalidToken so callers cannot be used as an oracle for why a
// token was rejected.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
