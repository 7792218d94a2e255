package ezdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/mysql"
	"github.com/ezdb/ezdb/drivers/db/sqlite"
	"github.com/ezdb/ezdb/types"
)

func TestBuildCreateTables(t *testing.T) {
	d := sqlite.Dialect()
	table := readingsTable(t, 100)

	batch, err := ezdb.BuildCreateTables(d, []*ezdb.Table{table}, nil)
	require.NoError(t, err)
	require.Len(t, batch, 5, "create, counter table, seed and two triggers")
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS readings (id INTEGER PRIMARY KEY AUTOINCREMENT, value DOUBLE NOT NULL, at TIMESTAMP NOT NULL)", batch[0])

	again, err := ezdb.BuildCreateTables(d, []*ezdb.Table{table}, map[string]bool{"readings": true})
	require.NoError(t, err)
	assert.Equal(t, batch[:3], again, "installed triggers are not recreated")
}

func TestBuildCreateTablesUnsupportedKind(t *testing.T) {
	d := sqlite.Dialect()
	restricted := *d
	restricted.TypeNames = map[types.Kind]string{types.Int64: "BIGINT"}

	_, err := ezdb.BuildCreateTables(&restricted, []*ezdb.Table{readingsTable(t, 0)}, nil)
	var ns *ezdb.NotSupportedError
	require.True(t, errors.As(err, &ns))
	assert.Equal(t, "sqlite", ns.Dialect)
}

func TestBuildInsert(t *testing.T) {
	d := sqlite.Dialect()
	table := readingsTable(t, 0)
	at := time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)

	batch, err := ezdb.BuildInsert(d, table, ezdb.Row{nil, 1.5, at}, ezdb.Row{int64(99), -2.0, at})
	require.NoError(t, err)
	assert.Equal(t, ezdb.Batch{
		"INSERT INTO readings (value, at) VALUES (1.5, '2024-05-06 07:08:09.010')",
		"INSERT INTO readings (value, at) VALUES (-2, '2024-05-06 07:08:09.010')",
	}, batch)

	_, err = ezdb.BuildInsert(d, table, ezdb.Row{nil, 1.5})
	assert.ErrorIs(t, err, ezdb.ErrRowShape)

	_, err = ezdb.BuildInsert(d, table, ezdb.Row{nil, float32(1.5), at})
	var tm *ezdb.TypeMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "value", tm.Column)
}

func TestUnvalidatedDescriptorRejected(t *testing.T) {
	tests := []struct {
		name  string
		table *ezdb.Table
	}{
		{"no columns", &ezdb.Table{Name: "x"}},
		{"unsafe name", &ezdb.Table{Name: "x; DROP TABLE y", Columns: []ezdb.Column{{Name: "id", Kind: types.Int64}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ezdb.BuildInsert(mysql.Dialect(), tt.table, ezdb.Row{})
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)

			_, err = ezdb.BuildRangeByTime(mysql.Dialect(), tt.table, "at", time.Time{}, time.Time{}, true)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)

			e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
			ctx := context.Background()
			_, err = e.LastRow(ctx, tt.table)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.LastNRows(ctx, tt.table, 5, true)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.RowsByID(ctx, tt.table, 0, 10, true)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.RowByID(ctx, tt.table, 1)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.DeleteLastNRows(ctx, tt.table, 1)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.CurrentRows(ctx, tt.table)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			_, err = e.RetainTable(ctx, tt.table)
			assert.ErrorIs(t, err, ezdb.ErrInvalidName)
			assert.ErrorIs(t, e.InsertInto(ctx, tt.table, ezdb.Row{}), ezdb.ErrInvalidName)
			assert.NoError(t, mock.ExpectationsWereMet(), "nothing reaches the database")
		})
	}
}

func TestBuildUpdate(t *testing.T) {
	d := sqlite.Dialect()
	id := ezdb.Column{Name: "id", Kind: types.Int64}
	value := ezdb.Column{Name: "value", Kind: types.Float64}

	batch, err := ezdb.BuildUpdate(d, "readings",
		[][]ezdb.Column{{id, value}, {id, value}},
		[][]any{{int64(1), 2.5}, {int64(2), 3.5}},
	)
	require.NoError(t, err)
	assert.Equal(t, ezdb.Batch{
		"UPDATE readings SET value = 2.5 WHERE id = 1",
		"UPDATE readings SET value = 3.5 WHERE id = 2",
	}, batch)

	tests := []struct {
		name    string
		columns [][]ezdb.Column
		values  [][]any
	}{
		{"list count mismatch", [][]ezdb.Column{{id, value}}, [][]any{{int64(1), 2.5}, {int64(2), 3.5}}},
		{"row length mismatch", [][]ezdb.Column{{id, value}, {id, value}}, [][]any{{int64(1), 2.5}, {int64(2)}}},
		{"key only", [][]ezdb.Column{{id}}, [][]any{{int64(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := ezdb.BuildUpdate(d, "readings", tt.columns, tt.values)
			assert.ErrorIs(t, err, ezdb.ErrRowShape)
			assert.Nil(t, batch)
		})
	}
}

func TestBuildReads(t *testing.T) {
	table := readingsTable(t, 0)

	tests := []struct {
		name string
		q    ezdb.Query
		want string
	}{
		{
			name: "range by id",
			q:    ezdb.BuildRangeByID(sqlite.Dialect(), table, 10, 20, true),
			want: "SELECT * FROM readings WHERE id >= 10 AND id < 20 ORDER BY id ASC",
		},
		{
			name: "last n descending",
			q:    ezdb.BuildLastN(sqlite.Dialect(), table, 5, false),
			want: "SELECT * FROM readings ORDER BY id DESC LIMIT 5",
		},
		{
			name: "last n ascending is nested",
			q:    ezdb.BuildLastN(mysql.Dialect(), table, 5, true),
			want: "SELECT * FROM (SELECT * FROM readings ORDER BY id DESC LIMIT 5) AS sub ORDER BY id ASC",
		},
		{
			name: "row by id",
			q:    ezdb.BuildRowByID(sqlite.Dialect(), table, 7),
			want: "SELECT * FROM readings WHERE id = 7",
		},
		{
			name: "row count with triggers",
			q:    ezdb.BuildRowCount(sqlite.Dialect(), table),
			want: "SELECT rowCount FROM readings_count WHERE id = 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.SQL)
		})
	}
}

func TestBuildRangeByTime(t *testing.T) {
	d := sqlite.Dialect()
	table := readingsTable(t, 0)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := from.Add(time.Hour)

	q, err := ezdb.BuildRangeByTime(d, table, "at", from, until, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM readings WHERE at >= '2024-01-01 00:00:00.000' AND at < '2024-01-01 01:00:00.000' ORDER BY at DESC", q.SQL)

	_, err = ezdb.BuildRangeByTime(d, table, "value", from, until, true)
	var tm *ezdb.TypeMismatchError
	assert.True(t, errors.As(err, &tm))

	_, err = ezdb.BuildRangeByTime(d, table, "missing", from, until, true)
	assert.ErrorIs(t, err, ezdb.ErrInvalidName)
}

func TestBuildDeletes(t *testing.T) {
	table := readingsTable(t, 0)
	assert.Equal(t, "DELETE FROM readings WHERE id IN (SELECT id FROM readings ORDER BY id ASC LIMIT 30)",
		ezdb.BuildDeleteOldest(sqlite.Dialect(), table, 30))
	assert.Equal(t, "DELETE FROM readings ORDER BY id DESC LIMIT 3",
		ezdb.BuildDeleteNewest(mysql.Dialect(), table, 3))
}

func TestLookupDialect(t *testing.T) {
	d, err := ezdb.LookupDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, sqlite.Name, d.Name)

	_, err = ezdb.LookupDialect("oracle")
	var unknown *ezdb.UnknownDialectError
	require.True(t, errors.As(err, &unknown))
	assert.Contains(t, unknown.Available, "sqlite")
	assert.Contains(t, unknown.Available, "mysql")
}
