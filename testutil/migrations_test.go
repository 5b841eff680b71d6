package testutil_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/migrations"
	"github.com/pkordes/trip-planner/testutil"
)

// TestMigrations applies the draft schema the way the server does at startup,
// checks the table the Postgres store writes to, then rolls it back.
// Skipped when TEST_DATABASE_URL is not set.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	ctx := context.Background()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err)

	// The database may be shared with the repo tests; start from version 0.
	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, migrations.Up(ctx, db, slog.New(slog.DiscardHandler)))
	// A second run at startup is a no-op.
	require.NoError(t, migrations.Up(ctx, db, slog.New(slog.DiscardHandler)))

	assert.Equal(t, map[string]string{
		"key":        "text",
		"draft":      "jsonb",
		"created_at": "timestamp with time zone",
		"updated_at": "timestamp with time zone",
	}, draftColumns(t, db))
	assert.True(t, indexExists(t, db, "trip_drafts_updated_at_idx"))

	_, err = db.ExecContext(ctx, `INSERT INTO trip_drafts (key, draft) VALUES ('s1', '{}')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO trip_drafts (key, draft) VALUES ('s1', '{}')`)
	assert.Error(t, err, "key is the primary key")
	_, err = db.ExecContext(ctx, `INSERT INTO trip_drafts (key, draft) VALUES ('s2', NULL)`)
	assert.Error(t, err, "draft is NOT NULL")

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, draftColumns(t, db))
	assert.False(t, indexExists(t, db, "trip_drafts_updated_at_idx"))
}

// ---- helpers ---------------------------------------------------------------

// draftColumns maps each trip_drafts column to its data type. Empty when the
// table does not exist.
func draftColumns(t *testing.T, db *sql.DB) map[string]string {
	t.Helper()

	rows, err := db.QueryContext(context.Background(), `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = 'trip_drafts'`)
	require.NoError(t, err)
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		cols[name] = typ
	}
	require.NoError(t, rows.Err())
	return cols
}

func indexExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRowContext(context.Background(), `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public' AND indexname = $1
		)`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}
