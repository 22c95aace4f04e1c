package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims structure. Tokens are issued by the
// identity service; membership_tier rides along so booking discounts work
// without a user lookup.
type Claims struct {
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Roles          []string  `json:"roles"`
	MembershipTier string    `json:"membership_tier,omitempty"`
	jwt.RegisteredClaims
}

// ErrTokenExpired is returned when the token's expiry has passed
var ErrTokenExpired = errors.New("token expired")

// Service validates JWT tokens issued by the identity service
type Service struct {
	secret string
}

// NewService creates a new JWT service
func NewService(secret string) *Service {
	return &Service{secret: secret}
}

// ValidateToken validates and parses an access token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// GenerateToken signs a token with the service's secret. Used by tests and
// local tooling; production tokens come from the identity service.
func (s *Service) GenerateToken(userID uuid.UUID, name string, roles []string, tier string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         userID,
		Name:           name,
		Roles:          roles,
		MembershipTier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "jetlink-identity",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
