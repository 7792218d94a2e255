package ezdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/sqlite"
	"github.com/ezdb/ezdb/internal/testutil"
	"github.com/ezdb/ezdb/types"
)

// readingsTable is the table most tests work with.
func readingsTable(tb testing.TB, maxRows int64) *ezdb.Table {
	tb.Helper()
	t, err := ezdb.NewTable("readings", maxRows,
		ezdb.Column{Name: "id", Kind: types.Int64},
		ezdb.Column{Name: "value", Kind: types.Float64},
		ezdb.Column{Name: "at", Kind: types.Timestamp},
	)
	require.NoError(tb, err)
	return t
}

// setupTestEngine opens a file based SQLite engine in a temporary directory.
// A file is used because the engine keeps no idle connections, which would
// discard an in-memory database between calls.
func setupTestEngine(tb testing.TB, cfg ezdb.Config) (*ezdb.Engine, func()) {
	tb.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(tb)
	}
	target := ezdb.Target{
		Dialect: sqlite.Name,
		Path:    filepath.Join(tb.TempDir(), "ezdb_test.db"),
	}
	e, err := ezdb.Open(context.Background(), target, cfg)
	require.NoError(tb, err, "Failed to open SQLite engine")

	cleanup := func() {
		if err := e.Close(); err != nil {
			tb.Logf("Error closing test engine: %v", err)
		}
	}
	return e, cleanup
}

// setupMockEngine wraps a sqlmock connection that matches statements exactly.
func setupMockEngine(tb testing.TB, d *ezdb.Dialect, cfg ezdb.Config) (*ezdb.Engine, sqlmock.Sqlmock) {
	tb.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = db.Close() })
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(tb)
	}
	return ezdb.New(db, d, cfg), mock
}
