package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories/memory"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer abc", "abc", nil},
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidToken},
		{"Bearer", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	user := &models.User{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, store.User().Create(ctx, user))

	m := NewJWTManager("secret", time.Hour, store.User())
	token, err := m.Issue(user)
	require.NoError(t, err)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestJWTManager_Rejects(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	user := &models.User{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, store.User().Create(ctx, user))

	m := NewJWTManager("secret", time.Hour, store.User())

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other", time.Hour, store.User())
		token, err := other.Issue(user)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTManager("secret", time.Minute, store.User())
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := past.Issue(user)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: user.ID}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost := &models.User{ID: "ghost"}
		token, err := m.Issue(ghost)
		require.NoError(t, err)
		_, err = m.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrUnknownUser)
	})
}

type fakeParser struct {
	claims *casdoorsdk.Claims
	err    error
}

func (f fakeParser) ParseJwtToken(string) (*casdoorsdk.Claims, error) {
	return f.claims, f.err
}

func TestCasdoorResolver_ProvisionsOnFirstSight(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	claims := &casdoorsdk.Claims{}
	claims.User.Id = "cd-1"
	claims.User.DisplayName = "Teacher T"
	claims.User.Email = "t@example.com"
	claims.User.Type = "teacher"

	r := &CasdoorResolver{
		client: fakeParser{claims: claims},
		users:  store.User(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	user, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "cd-1", user.ID)
	assert.Equal(t, models.RoleInstructor, user.Role)

	again, err := r.Resolve(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, total, err := store.User().List(ctx, repositories.UserFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCasdoorResolver_InvalidToken(t *testing.T) {
	r := &CasdoorResolver{
		client: fakeParser{err: errors.New("bad signature")},
		users:  memory.NewStore().User(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewResolver(t *testing.T) {
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{Auth: config.AuthConfig{Provider: config.AuthProviderLocal, JWTSecret: "s", TokenTTL: time.Hour}}
	res, iss, err := NewResolver(cfg, store.User(), logger)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.NotNil(t, iss)

	cfg.Auth.Provider = config.AuthProviderCasdoor
	res, iss, err = NewResolver(cfg, store.User(), logger)
	require.NoError(t, err)
	assert.IsType(t, &CasdoorResolver{}, res)
	assert.Nil(t, iss)
}
