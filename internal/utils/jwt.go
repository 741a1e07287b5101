package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtCustomClaims struct {
	KeycloakID string `json:"keycloak_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed service JWT carrying the caller's Keycloak id.
func GenerateToken(secret, keycloakID string, ttl time.Duration) (string, error) {
	claims := &jwtCustomClaims{
		KeycloakID: keycloakID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   keycloakID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded Keycloak id.
func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*jwtCustomClaims); ok && token.Valid {
		if claims.KeycloakID != "" {
			return claims.KeycloakID, nil
		}
		return claims.Subject, nil
	}

	return "", jwt.ErrTokenInvalidClaims
}
