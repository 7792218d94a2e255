package ezdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/mysql"
	"github.com/ezdb/ezdb/drivers/db/sqlite"
	"github.com/ezdb/ezdb/types"
)

func TestCommitBatch(t *testing.T) {
	batch := ezdb.Batch{
		"INSERT INTO readings (value) VALUES (1)",
		"INSERT INTO readings (value) VALUES (2)",
	}

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "commits every statement",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(batch[0]).WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(batch[1]).WillReturnResult(sqlmock.NewResult(2, 1))
				mock.ExpectCommit()
			},
			checkFn: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "rolls back on failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(batch[0]).WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(batch[1]).WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			checkFn: func(t *testing.T, err error) {
				var execErr *ezdb.ExecError
				require.True(t, errors.As(err, &execErr))
				assert.Equal(t, 1, execErr.Index)
				assert.Equal(t, batch[1], execErr.Statement)
				assert.ErrorContains(t, err, "disk full")
			},
		},
		{
			name: "reports a failed rollback",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(batch[0]).WillReturnError(errors.New("locked"))
				mock.ExpectRollback().WillReturnError(errors.New("connection lost"))
			},
			checkFn: func(t *testing.T, err error) {
				var rbErr *ezdb.RollbackError
				require.True(t, errors.As(err, &rbErr))
				var execErr *ezdb.ExecError
				require.True(t, errors.As(err, &execErr))
				assert.Equal(t, 0, execErr.Index)
				assert.ErrorContains(t, rbErr.Err, "connection lost")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
			tt.setup(mock)
			tt.checkFn(t, e.CommitBatch(context.Background(), batch))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCommitBatchEmpty(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	require.NoError(t, e.CommitBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitReturnsAffectedRows(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	mock.ExpectExec("DELETE FROM readings").WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := e.Commit(context.Background(), "DELETE FROM readings")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadQueryDecodes(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	table := readingsTable(t, 0)
	q := ezdb.BuildRowByID(e.Dialect(), table, 3)
	mock.ExpectQuery(q.SQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "value", "at"}).AddRow(int64(3), 4.25, "2024-02-03 04:05:06.789"),
	)

	row, err := e.RowByID(context.Background(), table, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), row[0])
	assert.Equal(t, 4.25, row[1])
	require.IsType(t, time.Time{}, row[2])
	assert.Equal(t, 789_000_000, row[2].(time.Time).Nanosecond())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadQueryRejectsNull(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	table := readingsTable(t, 0)
	q := ezdb.BuildLastN(e.Dialect(), table, 1, false)
	mock.ExpectQuery(q.SQL).WillReturnRows(
		sqlmock.NewRows([]string{"id", "value", "at"}).AddRow(int64(1), nil, "2024-02-03 04:05:06"),
	)

	_, err := e.LastRow(context.Background(), table)
	var tm *ezdb.TypeMismatchError
	assert.True(t, errors.As(err, &tm))
}

func TestDeleteLastNRowsLimit(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{MaxDeleteRowSize: 10})
	_, err := e.DeleteLastNRows(context.Background(), readingsTable(t, 0), 11)
	assert.ErrorIs(t, err, ezdb.ErrDeleteTooLarge)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosedEngine(t *testing.T) {
	e, _ := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	require.NoError(t, e.Close())
	_, err := e.Commit(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ezdb.ErrClosed)
}

func TestWrappedHandleUsesCurrentSchema(t *testing.T) {
	d := mysql.Dialect()
	e, mock := setupMockEngine(t, d, ezdb.Config{})
	ctx := context.Background()
	table, err := ezdb.NewTable("events", 10,
		ezdb.Column{Name: "id", Kind: types.Int32},
		ezdb.Column{Name: "note", Kind: types.TinyText},
	)
	require.NoError(t, err)

	batch, err := ezdb.BuildCreateTables(d, []*ezdb.Table{table}, nil)
	require.NoError(t, err)
	mock.ExpectQuery("SHOW TRIGGERS WHERE `Table` = 'events'").
		WillReturnRows(sqlmock.NewRows([]string{"Trigger"}))
	mock.ExpectBegin()
	for _, stmt := range batch {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()
	require.NoError(t, e.CreateTables(ctx, table))

	mock.ExpectQuery("SELECT COLUMN_NAME FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = 'events' ORDER BY ORDINAL_POSITION").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("id").AddRow("note"))
	require.NoError(t, e.VerifyTable(ctx, table))
	assert.NoError(t, mock.ExpectationsWereMet())
}
