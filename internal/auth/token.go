// Package auth issues and validates session tokens
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tracked/backend/internal/models"
)

const tokenTypeSession = "session"

// TokenGenerator handles JWT session token generation and validation
type TokenGenerator struct {
	secret        string
	sessionExpiry time.Duration
	now           func() time.Time
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, sessionExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:        secret,
		sessionExpiry: sessionExpiry,
		now:           time.Now,
	}
}

// GenerateToken creates a session token carrying the user id and role wire name.
// It returns the signed token and its expiry time.
func (tg *TokenGenerator) GenerateToken(userID int, role models.Role) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("cannot issue token for unknown role")
	}

	now := tg.now()
	expiresAt := now.Add(tg.sessionExpiry)
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role.String(),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
		"type":    tokenTypeSession,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tg.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a session token and returns the session it describes
func (tg *TokenGenerator) ValidateToken(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tg.secret), nil
	}, jwt.WithTimeFunc(tg.now))

	if err != nil {
		return models.Session{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return models.Session{}, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Session{}, fmt.Errorf("invalid token claims")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != tokenTypeSession {
		return models.Session{}, fmt.Errorf("token is not a session token")
	}

	// JWT claims decode numbers as float64
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return models.Session{}, fmt.Errorf("user_id not found in token")
	}

	roleName, ok := claims["role"].(string)
	if !ok {
		return models.Session{}, fmt.Errorf("role not found in token")
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return models.Session{}, fmt.Errorf("invalid role in token: %w", err)
	}

	return models.Session{UserID: int(userID), Role: role}, nil
}
