package ezdb_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/sqlite"
	"github.com/ezdb/ezdb/internal/lock"
)

func TestPlanRetention(t *testing.T) {
	tests := []struct {
		name     string
		count    int64
		maxRows  int64
		maxBatch int64
		due      bool
		keep     int64
		passes   []int64
	}{
		{name: "at threshold", count: 100, maxRows: 100, maxBatch: 100000, due: true, keep: 70, passes: []int64{30}},
		{name: "split in passes", count: 1000, maxRows: 500, maxBatch: 100, due: true, keep: 350, passes: []int64{100, 100, 100, 100, 100, 100, 50}},
		{name: "below threshold", count: 99, maxRows: 100, maxBatch: 100, due: false},
		{name: "unbounded", count: 1 << 40, maxRows: 0, maxBatch: 100, due: false},
		{name: "half rounds to even down", count: 15, maxRows: 15, maxBatch: 100, due: true, keep: 10, passes: []int64{5}},
		{name: "half rounds to even up", count: 5, maxRows: 5, maxBatch: 100, due: true, keep: 4, passes: []int64{1}},
		{name: "rounds to nearest", count: 3, maxRows: 3, maxBatch: 100, due: true, keep: 2, passes: []int64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, due := ezdb.PlanRetention(tt.count, tt.maxRows, tt.maxBatch)
			assert.Equal(t, tt.due, due)
			if !tt.due {
				assert.Empty(t, plan.Passes)
				return
			}
			assert.Equal(t, tt.keep, plan.Keep)
			assert.Equal(t, tt.count-tt.keep, plan.Target)
			assert.Equal(t, tt.passes, plan.Passes)
		})
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []ezdb.Event
}

func (l *eventLog) listen(_ context.Context, ev ezdb.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) all() []ezdb.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ezdb.Event(nil), l.events...)
}

func expectCount(mock sqlmock.Sqlmock, n int64) {
	mock.ExpectQuery("SELECT rowCount FROM readings_count WHERE id = 1").
		WillReturnRows(sqlmock.NewRows([]string{"rowCount"}).AddRow(n))
}

func deleteOldest(n int64) string {
	return fmt.Sprintf("DELETE FROM readings WHERE id IN (SELECT id FROM readings ORDER BY id ASC LIMIT %d)", n)
}

func TestRetainTableSinglePass(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{RetentionPause: -1})
	log := &eventLog{}
	e.RegisterListener(ezdb.EventRetentionStarted, log.listen)
	e.RegisterListener(ezdb.EventRetentionFinished, log.listen)

	expectCount(mock, 100)
	mock.ExpectExec(deleteOldest(30)).WillReturnResult(sqlmock.NewResult(0, 30))

	report, err := e.RetainTable(context.Background(), readingsTable(t, 100))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Passes)
	assert.Equal(t, int64(30), report.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())

	events := log.all()
	require.Len(t, events, 2)
	assert.Equal(t, ezdb.EventRetentionStarted, events[0].Type)
	assert.Equal(t, "Started to delete entries on table: readings\nCurrent Rows: 100 | Max table rows: 100 | Amount to delete: 30", events[0].Message)
	assert.Equal(t, ezdb.EventRetentionFinished, events[1].Type)
	assert.Equal(t, "Finished the Deletion of the table: readings", events[1].Message)
}

func TestRetainTableManyPasses(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{RetentionPause: -1, MaxDeleteRowSize: 100})

	expectCount(mock, 1000)
	for i := 0; i < 6; i++ {
		mock.ExpectExec(deleteOldest(100)).WillReturnResult(sqlmock.NewResult(0, 100))
	}
	mock.ExpectExec(deleteOldest(50)).WillReturnResult(sqlmock.NewResult(0, 50))

	report, err := e.RetainTable(context.Background(), readingsTable(t, 500))
	require.NoError(t, err)
	assert.Equal(t, 7, report.Passes)
	assert.Equal(t, int64(650), report.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetainTablePausesBetweenPasses(t *testing.T) {
	pause := 20 * time.Millisecond
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{RetentionPause: pause, MaxDeleteRowSize: 15})

	expectCount(mock, 100)
	mock.ExpectExec(deleteOldest(15)).WillReturnResult(sqlmock.NewResult(0, 15))
	mock.ExpectExec(deleteOldest(15)).WillReturnResult(sqlmock.NewResult(0, 15))

	start := time.Now()
	_, err := e.RetainTable(context.Background(), readingsTable(t, 100))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), pause, "one pause between two passes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetainTableStopsOnError(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{RetentionPause: -1, MaxDeleteRowSize: 100})

	expectCount(mock, 1000)
	mock.ExpectExec(deleteOldest(100)).WillReturnResult(sqlmock.NewResult(0, 100))
	mock.ExpectExec(deleteOldest(100)).WillReturnError(errors.New("deadlock"))

	report, err := e.RetainTable(context.Background(), readingsTable(t, 500))
	var execErr *ezdb.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 1, report.Passes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetainTableBelowThreshold(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{})
	expectCount(mock, 10)

	report, err := e.RetainTable(context.Background(), readingsTable(t, 100))
	require.NoError(t, err)
	assert.Zero(t, report.Passes)
	assert.Equal(t, int64(10), report.Plan.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetainTableSkipsWhenLocked(t *testing.T) {
	locker := lock.NewLocal()
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{Locker: locker})

	ok, err := locker.AcquireLock(context.Background(), "ezdb:retention:readings", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := e.RetainTable(context.Background(), readingsTable(t, 100))
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement runs while another holder has the lock")
}

func TestCheckDeleteTables(t *testing.T) {
	e, mock := setupMockEngine(t, sqlite.Dialect(), ezdb.Config{RetentionPause: -1})
	unbounded := readingsTable(t, 0)
	bounded := readingsTable(t, 100)

	expectCount(mock, 100)
	mock.ExpectExec(deleteOldest(30)).WillReturnResult(sqlmock.NewResult(0, 30))

	reports, err := e.CheckDeleteTables(context.Background(), []*ezdb.Table{unbounded, bounded})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Skipped)
	assert.Equal(t, int64(30), reports[1].Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
