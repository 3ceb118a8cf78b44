package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"products", "analyses", "feedback", "execution_metrics", "form_sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestSchemaVersion(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(4), version)
	assert.False(t, dirty)
}
