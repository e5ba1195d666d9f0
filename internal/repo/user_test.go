package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestCreateUser_Duplicate(t *testing.T) {
	r := repo.NewGormRepo(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, r.CreateUser(ctx, &models.User{Email: "Ada@Example.com", PasswordHash: "h", Role: "customer"}))
	err := r.CreateUser(ctx, &models.User{Email: "ada@example.com", PasswordHash: "h", Role: "customer"})
	assert.ErrorIs(t, err, repo.ErrUserAlreadyExist)

	u, err := r.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestUpsertAdmin(t *testing.T) {
	r := repo.NewGormRepo(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, r.CreateUser(ctx, &models.User{Email: "ops@example.com", PasswordHash: "old", Role: "customer"}))

	u, created, err := r.UpsertAdmin(ctx, "ops@example.com", "new")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "admin", u.Role)
	assert.Equal(t, "new", u.PasswordHash)

	_, created, err = r.UpsertAdmin(ctx, "root@example.com", "x")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRotateRefreshToken(t *testing.T) {
	r := repo.NewGormRepo(testutil.NewDB(t))
	ctx := context.Background()

	u := &models.User{Email: "u@example.com", PasswordHash: "h", Role: "customer"}
	require.NoError(t, r.CreateUser(ctx, u))

	exp := time.Now().Add(time.Hour).Unix()
	require.NoError(t, r.AddRefreshToken(ctx, &models.RefreshToken{Token: "h1", UserID: u.ID, JTI: "j1", ExpiresAt: exp}))

	next := &models.RefreshToken{Token: "h2", UserID: u.ID, JTI: "j2", ExpiresAt: exp}
	require.NoError(t, r.RotateRefreshToken(ctx, "j1", "h1", next))

	again := &models.RefreshToken{Token: "h3", UserID: u.ID, JTI: "j3", ExpiresAt: exp}
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "j1", "h1", again), repo.ErrRefreshRevoked)

	old, err := r.FindRefreshByJTI(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	require.NoError(t, r.RevokeRefresh(ctx, "h2"))
	cur, err := r.FindRefreshByJTI(ctx, "j2")
	require.NoError(t, err)
	assert.True(t, cur.Revoked)
}

func TestProducts(t *testing.T) {
	r := repo.NewGormRepo(testutil.NewDB(t))
	ctx := context.Background()

	shirt := &models.Product{Name: "Linen Shirt", Slug: "linen-shirt", Category: "tops", Price: decimal.RequireFromString("2500.50"), Stock: 3}
	hat := &models.Product{Name: "Cap", Slug: "cap", Description: "cotton shirt-style cap", Category: "hats", Price: decimal.NewFromInt(900), Stock: 1}
	require.NoError(t, r.CreateProduct(ctx, shirt))
	require.NoError(t, r.CreateProduct(ctx, hat))

	total, items, err := r.GetProducts(ctx, "tops", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, decimal.RequireFromString("2500.5").Equal(items[0].Price))

	total, _, err = r.SearchProducts(ctx, "SHIRT", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	byID, err := r.GetProductsByIDs(ctx, []uuid.UUID{shirt.ID})
	require.NoError(t, err)
	assert.Contains(t, byID, shirt.ID)

	require.NoError(t, r.SetProductImage(ctx, hat.ID, "products/x.png"))
	got, err := r.GetProduct(ctx, hat.ID)
	require.NoError(t, err)
	assert.Equal(t, "products/x.png", got.ImageKey)

	require.NoError(t, r.DeleteProduct(ctx, hat.ID))
	assert.Error(t, r.DeleteProduct(ctx, hat.ID))
}
