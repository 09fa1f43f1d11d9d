package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenDuration = 12 * time.Hour
	Issuer              = "slidecue"
	tokenTypeAccess     = "access"
)

var ErrNoOperator = errors.New("operator name required")

// Claims identify the operator allowed to create sessions and transcripts.
type Claims struct {
	Operator  string `json:"operator"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 operator token. A non-positive duration
// means AccessTokenDuration.
func GenerateAccessToken(secret string, operator string, duration time.Duration) (string, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", ErrNoOperator
	}
	if duration <= 0 {
		duration = AccessTokenDuration
	}

	now := time.Now()
	claims := &Claims{
		Operator:  operator,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken accepts only HS256 tokens issued by this service with an
// expiry set.
func ValidateToken(secret string, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
