package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

const issuer = "marketplace-service"

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens carrying the user id.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	users  repositories.UserRepository
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration, users repositories.UserRepository) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl, users: users, now: time.Now}
}

func (m *JWTManager) Issue(user *models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *JWTManager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

// Resolve verifies the token and loads the user fresh so role and admin
// changes apply to existing tokens.
func (m *JWTManager) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	return user, nil
}
