package utils

import (
	"fmt"
	"time"

	"taskboard-api/core/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TokenData is the parsed claim set of an API bearer token.
type TokenData struct {
	UserID   uuid.UUID
	Email    *string
	Username *string
	Scope    string
}

// GenerateToken issues a signed API token for the given user.
func GenerateToken(userID uuid.UUID, email *string, username *string, scope string) (string, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return "", fmt.Errorf("config not initialized")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"scope": scope,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(cfg.JWT.ExpireHours) * time.Hour).Unix(),
	}
	if email != nil {
		claims["email"] = *email
	}
	if username != nil {
		claims["username"] = *username
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateAndParseToken verifies the signature and expiry of an API token.
func ValidateAndParseToken(tokenString string) (*TokenData, error) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, fmt.Errorf("config not initialized")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	data := &TokenData{UserID: userID}
	if scope, ok := claims["scope"].(string); ok {
		data.Scope = scope
	}
	if email, ok := claims["email"].(string); ok {
		data.Email = &email
	}
	if username, ok := claims["username"].(string); ok {
		data.Username = &username
	}
	return data, nil
}

// GetTokenFromHeader extracts the bearer token from the Authorization header.
func GetTokenFromHeader(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:], nil
	}
	return "", fmt.Errorf("invalid authorization header format")
}
