package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the subset of bearer token claims the API reads
type Claims struct {
	jwt.RegisteredClaims        // sub, iss, aud, exp, iat, ...
	Email                string `json:"email,omitempty"`
}

// GetUserID returns the user ID from the JWT subject claim
func (c *Claims) GetUserID() string {
	return c.Subject
}
