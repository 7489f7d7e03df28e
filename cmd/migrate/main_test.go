package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadMigrationsPairsAndSorts(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"002_tags.up.sql":      "CREATE TABLE b ();",
		"001_initial.up.sql":   "CREATE TABLE a ();",
		"001_initial.down.sql": "DROP TABLE a;",
		"README.md":            "ignored",
		"notes.sql":            "ignored too",
	})

	got, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "001", got[0].Version)
	assert.Equal(t, "001_initial", got[0].Name)
	assert.Equal(t, "DROP TABLE a;", got[0].Down)
	assert.Equal(t, "002", got[1].Version)
	assert.Empty(t, got[1].Down)
}

func TestLoadMigrationsRequiresUp(t *testing.T) {
	dir := writeFiles(t, map[string]string{"003_orphan.down.sql": "DROP TABLE c;"})

	_, err := loadMigrations(dir)
	assert.Error(t, err)
}

func TestShippedMigrationsLoad(t *testing.T) {
	got, err := loadMigrations(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, m := range got {
		assert.NotEmpty(t, m.Down, m.Name)
	}
}
