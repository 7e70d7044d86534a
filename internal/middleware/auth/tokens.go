package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shahid0mer/shopease/internal/models"
)

const (
	// SessionTTL is fixed at issuance; there is no refresh or rotation.
	SessionTTL = 7 * 24 * time.Hour
	ResetTTL   = 15 * time.Minute
)

func SignSessionToken(userID uint, role models.Role, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(SessionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func SignResetToken(userID uint, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": "reset",
		"exp": time.Now().Add(ResetTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(raw string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ParseResetToken accepts only short-lived password-reset tokens, never a
// session token.
func ParseResetToken(raw string, secret []byte) (uint, error) {
	claims, err := parseToken(raw, secret)
	if err != nil {
		return 0, err
	}
	if typ, _ := claims["typ"].(string); typ != "reset" {
		return 0, fmt.Errorf("not a reset token")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid subject claim")
	}
	return uint(sub), nil
}
