package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		require.NoError(t, err)
		body := string(data)
		assert.True(t, strings.Contains(body, "-- +goose Up"), "%s lacks an Up section", e.Name())
		assert.True(t, strings.Contains(body, "-- +goose Down"), "%s lacks a Down section", e.Name())
	}
}

func TestMigrationsCoverLedgerAndTasks(t *testing.T) {
	var all strings.Builder
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		require.NoError(t, err)
		all.Write(data)
	}

	for _, table := range []string{"tasks", "recurring_task_templates", "delivery_records", "job_history"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, all.String(), "event_id       TEXT        PRIMARY KEY")
}

func TestMigrate_UnknownCommand(t *testing.T) {
	err := Migrate(context.Background(), nil, "sideways", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}
