package ezdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Locker provides per-table mutual exclusion for retention runs.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// RetentionPlan is the outcome of evaluating one table against its
// threshold.
type RetentionPlan struct {
	Count     int64
	Threshold int64
	// Keep is the row count left after the plan runs: 70% of Threshold,
	// rounded half to even.
	Keep   int64
	Target int64
	Passes []int64
}

// PlanRetention evaluates count against maxRows. It returns false when the
// table is unbounded or below its threshold. The rows to delete are split in
// passes of at most maxBatch rows.
func PlanRetention(count, maxRows, maxBatch int64) (RetentionPlan, bool) {
	if maxRows <= 0 || count < maxRows {
		return RetentionPlan{Count: count, Threshold: maxRows}, false
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxDeleteRowSize
	}
	keep := roundHalfEven(maxRows*7, 10)
	p := RetentionPlan{Count: count, Threshold: maxRows, Keep: keep, Target: count - keep}
	for rem := p.Target; rem > 0; {
		n := min(rem, maxBatch)
		p.Passes = append(p.Passes, n)
		rem -= n
	}
	return p, p.Target > 0
}

// roundHalfEven returns num/den rounded to the nearest integer, ties to even.
func roundHalfEven(num, den int64) int64 {
	q, r := num/den, num%den
	switch {
	case 2*r > den:
		q++
	case 2*r == den && q%2 != 0:
		q++
	}
	return q
}

// RetentionReport describes what one retention run did to a table.
type RetentionReport struct {
	Table   string
	Skipped bool
	Plan    RetentionPlan
	Passes  int
	Deleted int64
}

func retentionLockKey(table string) string { return "ezdb:retention:" + table }

// RetainTable runs one retention evaluation on t. When the table has reached
// its threshold the oldest rows are deleted in throttled passes, each one a
// single non-transactional statement, with Config.RetentionPause between
// passes. A statement error aborts the remaining passes.
func (e *Engine) RetainTable(ctx context.Context, t *Table) (RetentionReport, error) {
	report := RetentionReport{Table: t.Name}
	if err := t.Validate(); err != nil {
		return report, err
	}
	if t.MaxRows <= 0 {
		report.Skipped = true
		return report, nil
	}

	key := retentionLockKey(t.Name)
	acquired, err := e.locker.AcquireLock(ctx, key, e.cfg.LockTTL)
	if err != nil {
		return report, fmt.Errorf("ezdb: retention lock for %s: %w", t.Name, err)
	}
	if !acquired {
		e.logger.Info("retention already running elsewhere", slog.String("table", t.Name))
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := e.locker.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			e.logger.Warn("releasing retention lock failed", slog.String("table", t.Name), slog.Any("error", err))
		}
	}()

	count, err := e.CurrentRows(ctx, t)
	if err != nil {
		return report, err
	}
	plan, due := PlanRetention(count, t.MaxRows, e.cfg.MaxDeleteRowSize)
	report.Plan = plan
	if !due {
		return report, nil
	}

	e.logger.Info("retention started", slog.String("table", t.Name), slog.Int64("count", count),
		slog.Int64("max_rows", t.MaxRows), slog.Int64("target", plan.Target), slog.Int("passes", len(plan.Passes)))
	e.emit(ctx, Event{
		Type:      EventRetentionStarted,
		Table:     t.Name,
		Count:     count,
		Threshold: t.MaxRows,
		Target:    plan.Target,
		Message: fmt.Sprintf("Started to delete entries on table: %s\nCurrent Rows: %d | Max table rows: %d | Amount to delete: %d",
			t.Name, count, t.MaxRows, plan.Target),
	})

	for i, n := range plan.Passes {
		if i > 0 {
			if err := pause(ctx, e.cfg.RetentionPause); err != nil {
				return report, err
			}
		}
		deleted, err := e.Commit(ctx, BuildDeleteOldest(e.dialect, t, n))
		if err != nil {
			return report, fmt.Errorf("ezdb: retention pass %d on %s: %w", i+1, t.Name, err)
		}
		report.Passes++
		report.Deleted += deleted
		e.logger.Debug("retention pass", slog.String("table", t.Name), slog.Int("pass", i+1), slog.Int64("rows", n))
	}

	e.logger.Info("retention finished", slog.String("table", t.Name), slog.Int64("deleted", report.Deleted))
	e.emit(ctx, Event{
		Type:      EventRetentionFinished,
		Table:     t.Name,
		Count:     count,
		Threshold: t.MaxRows,
		Target:    plan.Target,
		Message:   "Finished the Deletion of the table: " + t.Name,
	})
	return report, nil
}

// CheckDeleteTables runs one retention evaluation over tables, working on at
// most Config.RetentionParallelism tables at once. Reports are returned in
// the order of tables; the first error is returned after all started runs
// complete.
func (e *Engine) CheckDeleteTables(ctx context.Context, tables []*Table) ([]RetentionReport, error) {
	reports := make([]RetentionReport, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RetentionParallelism)
	for i, t := range tables {
		g.Go(func() error {
			r, err := e.RetainTable(gctx, t)
			reports[i] = r
			return err
		})
	}
	err := g.Wait()
	return reports, err
}
