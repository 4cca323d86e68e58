package auth

import "folio/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The middleware only depends on this, never on the key source.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.AuthClaims, error)

	// Close releases any resources held by the verifier
	Close() error
}
