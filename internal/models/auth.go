package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. UserID may be empty
// when the issuer only knows the identity-provider subject.
type JWTClaims struct {
	UserID string   `json:"user_id,omitempty"`
	Role   UserRole `json:"role,omitempty"`
	Email  string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}
