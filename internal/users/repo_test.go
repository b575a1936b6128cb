package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadloom/storefront-backend/internal/testdb"
	dbpkg "github.com/threadloom/storefront-backend/pkg/db"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Priya@Example.com ",
		PasswordHash: "hash",
		Name:         "Priya",
	})
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", user.Email)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "PRIYA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, now))
	require.NoError(t, repo.SetAdmin(ctx, user.ID, true))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin)
	require.NotNil(t, reloaded.LastLoginAt)
}

func TestRepositoryCreateDuplicateEmail(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "h", Name: "A"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "DUP@example.com", PasswordHash: "h", Name: "B"})
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""))
}

func TestRepositoryUpdatesReportMissingUser(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	missing := uuid.New()
	assert.True(t, dbpkg.IsNotFound(repo.SetAdmin(ctx, missing, true)))
	assert.True(t, dbpkg.IsNotFound(repo.UpdatePasswordHash(ctx, missing, "h")))

	user, err := repo.Create(ctx, CreateUserDTO{Email: "ops@example.com", PasswordHash: "h", Name: "Ops"})
	require.NoError(t, err)
	require.NoError(t, repo.SetActive(ctx, user.ID, false))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}
