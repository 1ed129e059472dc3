// Package auth mints and verifies the signed tokens used by the token
// service. Access and refresh tokens share the claim shape but are signed
// with distinct secrets, so one can never be presented as the other.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akarpenko/notesync/internal/common"
)

// Claims binds a token to a specific device, not just a user. DeviceID is
// the internal device row id, so deleting the device row cuts off every
// token that references it.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// GenerateToken signs a HS256 token for (userID, deviceID) valid for
// validityDuration from now.
func GenerateToken(userID, deviceID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique jti keeps two tokens minted within the same second
			// from colliding as refresh-token store keys.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   userID,
		DeviceID: deviceID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of tokenString and returns
// its claims. Returns common.ErrTokenExpired for structurally valid but
// expired tokens and common.ErrInvalidToken for everything else.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
