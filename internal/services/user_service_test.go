package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories/memory"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := env.manager.User()

	resp, err := users.Register(ctx, &RegisterRequest{Name: "Ada", Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "token-"+resp.User.ID, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.NotEqual(t, "secret1", resp.User.Password)

	_, err = users.Register(ctx, &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = users.Register(ctx, &RegisterRequest{Name: "Bad", Email: "nope", Password: "x"})
	assert.True(t, IsValidationError(err))

	login, err := users.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	login, err = users.Login(ctx, &LoginRequest{Email: "  ada@EXAMPLE.com\t", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = users.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, IsAuthenticationError(err))

	_, err = users.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalAuthDisabledWithoutIssuer(t *testing.T) {
	svc := NewUserService(memory.NewStore(), slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{Name: "a", Email: "a@b.io", Password: "secret1"})
	assert.ErrorIs(t, err, ErrLocalAuthDisabled)
	_, err = svc.Login(context.Background(), &LoginRequest{Email: "a@b.io", Password: "secret1"})
	assert.ErrorIs(t, err, ErrLocalAuthDisabled)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	taken := env.user(t, "taken", models.RoleStudent, false)
	me := env.user(t, "me", models.RoleStudent, false)

	name := "Me Renamed"
	updated, err := env.manager.User().UpdateProfile(ctx, me, &UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	email := taken.Email
	_, err = env.manager.User().UpdateProfile(ctx, me, &UpdateProfileRequest{Email: &email})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	profile, err := env.manager.User().GetProfile(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, name, profile.Name)
	assert.Equal(t, "me@example.com", profile.Email)

	_, err = env.manager.User().GetProfile(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", models.RoleInstructor, true)
	otherAdmin := env.user(t, "root", models.RoleInstructor, true)
	student := env.user(t, "student", models.RoleStudent, false)
	users := env.manager.User()

	_, err := users.List(ctx, student, UserListParams{})
	assert.True(t, IsPermissionError(err))

	role := models.RoleStudent
	list, err := users.List(ctx, admin, UserListParams{Role: &role})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)

	promote := models.RoleInstructor
	updated, err := users.Update(ctx, admin, student.UserID, &AdminUpdateUserRequest{Role: &promote})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, updated.Role)
	assert.True(t, authz.Resolve(updated).Can(authz.CapCreateCourse))

	assert.ErrorIs(t, users.Delete(ctx, admin, otherAdmin.UserID), ErrCannotDeleteAdmin)
	require.NoError(t, users.Delete(ctx, admin, student.UserID))

	_, err = users.Get(ctx, admin, student.UserID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
