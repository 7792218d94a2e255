package ezdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ezdb/ezdb/internal/codec"
)

// Batch is an ordered list of statements applied as one unit.
type Batch []string

// CommitBatch runs every statement of batch on one connection inside one
// transaction. On failure the transaction is rolled back and the statement
// error is returned; if the rollback fails too, a *RollbackError carrying
// both is returned.
func (e *Engine) CommitBatch(ctx context.Context, batch Batch) error {
	if len(batch) == 0 {
		return nil
	}
	conn, err := e.conn(ctx)
	if err != nil {
		return err
	}
	defer e.release(conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ezdb: begin transaction: %w", err)
	}
	start := time.Now()
	for i, stmt := range batch {
		if err := e.exec(ctx, tx, stmt); err != nil {
			cause := &ExecError{Statement: stmt, Index: i, Err: err}
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
				return &RollbackError{Cause: cause, Err: rbErr}
			}
			return cause
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ezdb: commit transaction: %w", err)
	}
	e.logger.Debug("batch committed", slog.Int("statements", len(batch)), slog.Duration("duration", time.Since(start)))
	return nil
}

// Commit runs one statement outside any transaction and returns the number
// of affected rows when the driver reports it.
func (e *Engine) Commit(ctx context.Context, stmt string) (int64, error) {
	conn, err := e.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer e.release(conn)

	start := time.Now()
	res, err := conn.ExecContext(ctx, stmt)
	if err != nil {
		e.logger.Error("exec failed", slog.String("sql", stmt), slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return 0, &ExecError{Statement: stmt, Index: -1, Err: err}
	}
	e.logger.Debug("exec", slog.String("sql", stmt), slog.Duration("duration", time.Since(start)))
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (e *Engine) exec(ctx context.Context, tx *sqlx.Tx, stmt string) error {
	start := time.Now()
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		e.logger.Error("exec failed", slog.String("sql", stmt), slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return err
	}
	e.logger.Debug("exec", slog.String("sql", stmt), slog.Duration("duration", time.Since(start)))
	return nil
}

// ReadQuery runs query and decodes every result row positionally with cols.
func (e *Engine) ReadQuery(ctx context.Context, query string, cols []OutputColumn) ([]Row, error) {
	conn, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release(conn)

	start := time.Now()
	rows, err := conn.QueryxContext(ctx, query)
	if err != nil {
		e.logger.Error("query failed", slog.String("sql", query), slog.Any("error", err))
		return nil, &ExecError{Statement: query, Index: -1, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := e.scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecError{Statement: query, Index: -1, Err: err}
	}
	e.logger.Debug("query", slog.String("sql", query), slog.Int("rows", len(out)), slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (e *Engine) scanRow(rows *sqlx.Rows, cols []OutputColumn) (Row, error) {
	vals, err := rows.SliceScan()
	if err != nil {
		return nil, fmt.Errorf("ezdb: scan row: %w", err)
	}
	return decodeRow(vals, cols, e.dialect.Format)
}

func decodeRow(vals []any, cols []OutputColumn, f codec.Format) (Row, error) {
	row := make(Row, len(cols))
	for i, c := range cols {
		if c.Position < 0 || c.Position >= len(vals) {
			return nil, fmt.Errorf("%w: result has %d columns, position %d requested", ErrRowShape, len(vals), c.Position)
		}
		v, err := codec.Decode(vals[c.Position], c.Kind, f)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// CheckStatus reports whether a connection can be opened. The connection is
// held for Config.StatusCheckDelay before it is released.
func (e *Engine) CheckStatus(ctx context.Context) bool {
	conn, err := e.conn(ctx)
	if err != nil {
		e.logger.Debug("status check failed", slog.Any("error", err))
		return false
	}
	defer e.release(conn)
	if err := conn.PingContext(ctx); err != nil {
		e.logger.Debug("status check failed", slog.Any("error", err))
		return false
	}
	return pause(ctx, e.cfg.StatusCheckDelay) == nil
}
