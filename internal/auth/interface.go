package auth

import "chatloop/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The middleware stays agnostic of how keys are obtained.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or badly signed.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases any resources held by the verifier
	Close() error
}
