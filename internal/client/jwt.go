package client

import (
	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim from a JWT without verifying it.
// Returns 0 when the token is not a JWT or carries no exp.
func tokenExpiry(token string) int64 {
	if token == "" {
		return 0
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
