// Package services contains the core business logic for Mainstage.
package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents a caller's permission level.
type Role string

const (
	RoleAdmin Role = "admin" // Stream console: library init, request toggles, effects
	RoleBot   Role = "bot"   // Chat bot: song requests, registrations, point awards
)

// Claims represents the JWT payload for authenticated requests.
type Claims struct {
	Actor string `json:"actor"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles JWT token generation and validation.
type AuthService struct {
	secret             []byte
	adminTokenDuration time.Duration
	botTokenDuration   time.Duration
}

// NewAuthService creates an AuthService with the given signing secret and token durations.
func NewAuthService(secret string, adminDuration, botDuration time.Duration) *AuthService {
	return &AuthService{
		secret:             []byte(secret),
		adminTokenDuration: adminDuration,
		botTokenDuration:   botDuration,
	}
}

// GenerateToken creates a signed JWT for the given actor and role.
func (s *AuthService) GenerateToken(actor string, role Role) (string, error) {
	var duration time.Duration
	if role == RoleAdmin {
		duration = s.adminTokenDuration
	} else {
		duration = s.botTokenDuration
	}

	claims := Claims{
		Actor: actor,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mainstage",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies the JWT signature and expiry, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
