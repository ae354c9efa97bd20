// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesSchema(t *testing.T) {
	t.Parallel()

	db, err := New(filepath.Join(t.TempDir(), "talentgate.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "api_keys", "sessions", "schema_migrations"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "talentgate.db")

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not reapply migrations.
	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, len(migrations), version)
}
