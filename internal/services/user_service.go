package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/marketplace-service/internal/auth"
	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	issuer    auth.TokenIssuer
	cost      int
}

// NewUserService builds the user service. issuer may be nil when tokens are
// issued by an external identity provider; local register and login are
// then disabled.
func NewUserService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, issuer auth.TokenIssuer) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		issuer:    issuer,
		cost:      bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if s.issuer == nil {
		return nil, ErrLocalAuthDisabled
	}
	if req != nil {
		req.Email = normalizeEmail(req.Email)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := req.Email
	exists, err := s.repo.User().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", user.Role)
	return s.authResponse(user)
}

func (s *userService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if s.issuer == nil {
		return nil, ErrLocalAuthDisabled
	}
	if req != nil {
		req.Email = normalizeEmail(req.Email)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		s.logger.Warn("Failed login", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user)
}

func (s *userService) GetProfile(ctx context.Context, p *authz.Principal) (*models.User, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	return s.load(ctx, p.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, p *authz.Principal, req *UpdateProfileRequest) (*models.User, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if err := s.applyEmail(ctx, user, req.Email); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hash)
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated", "user_id", user.ID)
	return user, nil
}

// ===== ADMINISTRATION =====

func (s *userService) List(ctx context.Context, p *authz.Principal, params UserListParams) (*models.UserList, error) {
	if err := requireCapability(p, authz.CapManageUsers, "list"); err != nil {
		return nil, err
	}
	page := params.ListParams.Normalize()
	users, total, err := s.repo.User().List(ctx, repositories.UserFilters{
		Role:      params.Role,
		Search:    strings.TrimSpace(params.Search),
		Limit:     page.Size,
		Offset:    page.Offset(),
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &models.UserList{Users: users, Page: models.NewPage(page.Page, page.Size, total)}, nil
}

func (s *userService) Get(ctx context.Context, p *authz.Principal, id string) (*models.User, error) {
	if err := requireCapability(p, authz.CapManageUsers, "read"); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *userService) Update(ctx context.Context, p *authz.Principal, id string, req *AdminUpdateUserRequest) (*models.User, error) {
	if err := requireCapability(p, authz.CapManageUsers, "update"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if err := s.applyEmail(ctx, user, req.Email); err != nil {
		return nil, err
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User updated by administrator", "user_id", id, "admin_id", p.UserID)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, p *authz.Principal, id string) error {
	if err := requireCapability(p, authz.CapManageUsers, "delete"); err != nil {
		return err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	if err := s.repo.User().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("User deleted", "user_id", id, "admin_id", p.UserID)
	return nil
}

// ===== HELPERS =====

func (s *userService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) applyEmail(ctx context.Context, user *models.User, email *string) error {
	if email == nil {
		return nil
	}
	normalized := normalizeEmail(*email)
	if normalized == user.Email {
		return nil
	}
	existing, err := s.repo.User().GetByEmail(ctx, normalized)
	switch {
	case err == nil && existing.ID != user.ID:
		return ErrEmailAlreadyExists
	case err != nil && !repositories.IsNotFoundError(err):
		return fmt.Errorf("failed to check email: %w", err)
	}
	user.Email = normalized
	return nil
}

func (s *userService) save(ctx context.Context, user *models.User) error {
	if err := s.repo.User().Update(ctx, user); err != nil {
		switch {
		case repositories.IsDuplicateError(err):
			return ErrEmailAlreadyExists
		case repositories.IsNotFoundError(err):
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *userService) authResponse(user *models.User) (*AuthResponse, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func requireCapability(p *authz.Principal, c authz.Capability, action string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.Can(c) {
		return NewPermissionError(p.UserID, "", "user", action, "administrator only")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
