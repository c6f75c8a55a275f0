package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog/internal/adapter/storage"
	"github.com/rl1809/catalog/internal/core/domain"
)

func TestSeedCommand_WritesStore(t *testing.T) {
	out := filepath.Join(t.TempDir(), "items.json")

	cmd := rootCmd()
	cmd.SetArgs([]string{"--count", "25", "--out", out, "--seed", "3"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	items, err := domain.ParseItems(data)
	require.NoError(t, err)
	assert.Len(t, items, 25)
}

func TestSeedCommand_SQLiteMirror(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "items.json")
	dsn := filepath.Join(dir, "catalog.db")

	cmd := rootCmd()
	cmd.SetArgs([]string{"-n", "12", "-o", out, "--sql-driver", "sqlite", "--sql-dsn", dsn})
	require.NoError(t, cmd.Execute())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	page, err := storage.NewSQLStore(db).ListItems(context.Background(), domain.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Meta.Total)
}

func TestSeedCommand_RejectsHalfSQLConfig(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"-o", filepath.Join(t.TempDir(), "items.json"), "--sql-driver", "sqlite"})
	cmd.SetErr(&discard{})

	assert.Error(t, cmd.Execute())
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
