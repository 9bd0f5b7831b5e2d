package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Config holds JWT configuration
type Config struct {
	SigningKey      string
	ExpirationHours int
}

var cfg *Config

// Initialize sets the package configuration. Must be called before any
// token operation.
func Initialize(c *Config) {
	cfg = c
}

// UserClaims represents the JWT claims for user authentication. Category
// and TenantID together are the caller identity the authorization guard
// evaluates; TenantID is absent for global superadmin operators.
type UserClaims struct {
	Email    string `json:"email"`
	UserID   uint   `json:"user_id"`
	Category string `json:"category"`
	TenantID *uint  `json:"tenant_id,omitempty"`
	RoleID   *uint  `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token carrying the caller identity
func GenerateToken(email string, userID uint, category string, tenantID, roleID *uint) (string, error) {
	if cfg == nil {
		return "", errors.New("jwtutil not initialized")
	}

	claims := UserClaims{
		Email:    email,
		UserID:   userID,
		Category: category,
		TenantID: tenantID,
		RoleID:   roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("jwtutil not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.SigningKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
