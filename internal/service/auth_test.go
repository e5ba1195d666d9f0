package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	r, _ := newRepo(t)
	return &AuthService{
		Repo:          r,
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "password1"},
		{name: "empty password", email: "a@b.com", password: ""},
		{name: "short password", email: "a@b.com", password: "short"},
		{name: "not an email", email: "nobody", password: "password1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password, "A", "B")
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, " Buyer@Example.com ", "password1", "Ada", "Obi")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", u.Email)
	assert.Equal(t, auth.RoleCustomer, u.Role)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err = svc.Register(ctx, "buyer@example.com", "password2", "", "")
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Login(ctx, "buyer@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "missing@example.com", "password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := svc.Login(ctx, "BUYER@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, res.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(tokens.AccessTTL), res.AccessExp, 5*time.Second)

	claims, err := tokens.AccessClaimsFromToken(res.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, auth.RoleCustomer, claims.Role)

	rclaims, err := tokens.RefreshClaimsFromToken(res.RefreshToken, svc.RefreshSecret)
	require.NoError(t, err)
	stored, err := svc.Repo.FindRefreshByJTI(ctx, rclaims.ID)
	require.NoError(t, err)
	assert.Equal(t, tokens.Sha256Hex(res.RefreshToken), stored.Token)
	assert.False(t, stored.Revoked)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "password1", "A", "B")
	require.NoError(t, err)
	login, err := svc.Login(ctx, "a@b.com", "password1")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "a rotated token cannot be reused")

	_, err = svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, next.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "access token signed with another secret")

	require.NoError(t, svc.Logout(ctx, next.RefreshToken))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, svc.Logout(ctx, ""))
}

func TestAuthService_CreateAdmin(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "boss@example.com", "password1", "", "")
	require.NoError(t, err)

	u, created, err := svc.CreateAdmin(ctx, "boss@example.com", "new-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, auth.RoleAdmin, u.Role)

	res, err := svc.Login(ctx, "boss@example.com", "new-password")
	require.NoError(t, err)
	assert.True(t, res.IsAdmin)

	_, created, err = svc.CreateAdmin(ctx, "ops@example.com", "password1")
	require.NoError(t, err)
	assert.True(t, created)

	_, _, err = svc.CreateAdmin(ctx, "ops@example.com", "short")
	require.ErrorIs(t, err, ErrValidation)
}
