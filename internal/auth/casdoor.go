package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

// claimsParser is the part of the Casdoor client the resolver needs.
type claimsParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorResolver validates Casdoor-issued tokens and keeps a local user
// row per Casdoor account so orders and enrollments have an owner.
type CasdoorResolver struct {
	client claimsParser
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewCasdoorResolver(cfg config.CasdoorConfig, users repositories.UserRepository, logger *slog.Logger) *CasdoorResolver {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorResolver{client: client, users: users, logger: logger}
}

func (r *CasdoorResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := r.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	user, err := r.users.GetByID(ctx, claims.Id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to load casdoor user: %w", err)
	}

	user = userFromClaims(claims)
	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to provision casdoor user: %w", err)
	}
	r.logger.Info("Provisioned user from casdoor", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func userFromClaims(claims *casdoorsdk.Claims) *models.User {
	name := claims.User.DisplayName
	if name == "" {
		name = claims.User.Name
	}
	return &models.User{
		ID:      claims.Id,
		Name:    name,
		Email:   claims.User.Email,
		Role:    mapCasdoorType(claims.User.Type),
		IsAdmin: claims.User.IsAdmin,
	}
}

func mapCasdoorType(t string) models.UserRole {
	switch strings.ToLower(t) {
	case "teacher", "instructor", "educator":
		return models.RoleInstructor
	default:
		return models.RoleStudent
	}
}
