// Package auth issues and validates HS256 access tokens and guards routes with them.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload.
// Subject carries the user's email; ExpiresAt is an absolute Unix timestamp.
type Claims struct {
	jwt.RegisteredClaims
}

// Email returns the subject of the token.
func (c *Claims) Email() string {
	return c.Subject
}
