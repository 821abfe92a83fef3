package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	secretMu   sync.RWMutex
	jwtSecret  []byte
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// ErrNoSecret is returned when tokens are used before SetupTokens.
var ErrNoSecret = errors.New("jwt secret is not configured")

// SetupTokens configures the signing secret and token lifetimes.
func SetupTokens(secret string, access, refresh time.Duration) {
	secretMu.Lock()
	defer secretMu.Unlock()
	jwtSecret = []byte(secret)
	if access > 0 {
		accessTTL = access
	}
	if refresh > 0 {
		refreshTTL = refresh
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func AccessTokenTTL() time.Duration {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return accessTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func RefreshTokenTTL() time.Duration {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return refreshTTL
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UniqueID string `json:"uniqueId"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken generates an access token for a user
func GenerateToken(userID, email, uniqueID string) (string, error) {
	return generate(userID, email, uniqueID, TokenTypeAccess, AccessTokenTTL())
}

// GenerateRefreshToken generates a refresh token for a user
func GenerateRefreshToken(userID, email, uniqueID string) (string, error) {
	return generate(userID, email, uniqueID, TokenTypeRefresh, RefreshTokenTTL())
}

func generate(userID, email, uniqueID, tokenType string, ttl time.Duration) (string, error) {
	secret, err := signingKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		UniqueID: uniqueID,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses a JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	secret, err := signingKey()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

func signingKey() ([]byte, error) {
	secretMu.RLock()
	defer secretMu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, ErrNoSecret
	}
	return jwtSecret, nil
}
