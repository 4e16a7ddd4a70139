package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

var (
	ErrMissingToken = errors.New("authorization header missing")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("token user no longer exists")
)

// TokenResolver turns a bearer token into the stored user it belongs to.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// TokenIssuer signs tokens for locally authenticated users. Only the local
// provider issues tokens; Casdoor issues its own.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return parts[1], nil
}

// NewResolver builds the resolver for the configured provider. The issuer is
// nil for providers that do not sign tokens locally.
func NewResolver(cfg *config.Config, users repositories.UserRepository, logger *slog.Logger) (TokenResolver, TokenIssuer, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderLocal:
		m := NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, users)
		return m, m, nil
	case config.AuthProviderCasdoor:
		return NewCasdoorResolver(cfg.Casdoor, users, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
