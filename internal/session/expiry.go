package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessExpiry reads the exp claim of a JWT access token without verifying
// it. Opaque tokens fall back to expires_in.
func accessExpiry(token string, expiresIn int64, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.UTC()
		}
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second).UTC()
	}
	return time.Time{}
}
