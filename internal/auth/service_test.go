// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentgate/talentgate/internal/database"
	"github.com/talentgate/talentgate/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestServiceSetupUser(t *testing.T) {
	t.Parallel()

	t.Run("successful user creation", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := NewService(setupTestDB(t))

		user, err := svc.SetupUser(ctx, "admin", "password123")
		require.NoError(t, err)
		assert.Equal(t, "admin", user.Username)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "password123", user.PasswordHash)
	})

	t.Run("second user rejected", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := NewService(setupTestDB(t))

		_, err := svc.SetupUser(ctx, "admin", "password123")
		require.NoError(t, err)

		_, err = svc.SetupUser(ctx, "other", "password123")
		assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
	})

	t.Run("password too short", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		svc := NewService(setupTestDB(t))

		_, err := svc.SetupUser(ctx, "admin", "short")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})
}

func TestServiceLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	_, err := svc.SetupUser(ctx, "admin", "password123")
	require.NoError(t, err)

	t.Run("successful login", func(t *testing.T) {
		user, err := svc.Login(ctx, "admin", "password123")
		require.NoError(t, err)
		assert.Equal(t, "admin", user.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "admin", "nope-nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestServiceChangePassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	_, err := svc.SetupUser(ctx, "admin", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "admin", "password123", "newpassword456"))

	_, err = svc.Login(ctx, "admin", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "admin", "newpassword456")
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "admin", "wrong-current", "whatever123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceIsSetupComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	complete, err := svc.IsSetupComplete(ctx)
	require.NoError(t, err)
	assert.False(t, complete)

	_, err = svc.SetupUser(ctx, "admin", "password123")
	require.NoError(t, err)

	complete, err = svc.IsSetupComplete(ctx)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestServiceAPIKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	raw, key, err := svc.GenerateAPIKey(ctx, "ci")
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, "ci", key.Name)

	keys, err := svc.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "ci", keys[0].Name)

	resolved, err := svc.ValidateAPIKey(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, key.ID, resolved.ID)

	_, err = svc.ValidateAPIKey(ctx, "not-a-key")
	assert.ErrorIs(t, err, models.ErrAPIKeyNotFound)

	require.NoError(t, svc.DeleteAPIKey(ctx, key.ID))
	assert.ErrorIs(t, svc.DeleteAPIKey(ctx, key.ID), models.ErrAPIKeyNotFound)
}
