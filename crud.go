package ezdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// Query is a read statement together with the decode list for its rows.
type Query struct {
	SQL     string
	Columns []OutputColumn
}

// literal encodes v for column c, naming the column on type mismatches.
func literal(d *Dialect, c Column, v any) (string, error) {
	s, err := d.Literal(v, c.Kind)
	if err != nil {
		var tm *TypeMismatchError
		if errors.As(err, &tm) {
			tm.Column = c.Name
		}
		return "", err
	}
	return s, nil
}

// BuildInsert renders one INSERT per row. The identity value of each row is
// ignored; every other value must have its column's runtime type.
func BuildInsert(d *Dialect, t *Table, rows ...Row) (Batch, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(t.Columns)-1)
	for _, c := range t.Columns[1:] {
		names = append(names, c.Name)
	}
	b := d.Builder()
	batch := make(Batch, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, table %s has %d columns",
				ErrRowShape, i, len(row), t.Name, len(t.Columns))
		}
		vals := make([]string, 0, len(names))
		for j, c := range t.Columns[1:] {
			lit, err := literal(d, c, row[j+1])
			if err != nil {
				return nil, err
			}
			vals = append(vals, lit)
		}
		batch = append(batch, b.InsertInto(t.Name, names...).Values(vals...).Flush())
	}
	return batch, nil
}

// BuildUpdate renders one UPDATE per row. columns[i] and values[i] describe
// row i; position 0 holds the key used in the WHERE clause and every other
// pair becomes a SET assignment. All shapes are checked before any statement
// is rendered.
func BuildUpdate(d *Dialect, table string, columns [][]Column, values [][]any) (Batch, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: table name %q", ErrInvalidName, table)
	}
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d column lists for %d value lists", ErrRowShape, len(columns), len(values))
	}
	for i := range columns {
		if len(columns[i]) != len(values[i]) {
			return nil, fmt.Errorf("%w: row %d has %d columns and %d values", ErrRowShape, i, len(columns[i]), len(values[i]))
		}
		if len(columns[i]) < 2 {
			return nil, fmt.Errorf("%w: row %d needs a key and at least one column", ErrRowShape, i)
		}
		for _, c := range columns[i] {
			if !ValidIdentifier(c.Name) {
				return nil, fmt.Errorf("%w: column name %q", ErrInvalidName, c.Name)
			}
		}
	}

	b := d.Builder()
	batch := make(Batch, 0, len(columns))
	for i, cols := range columns {
		key, err := literal(d, cols[0], values[i][0])
		if err != nil {
			return nil, err
		}
		sets := make([]string, 0, len(cols)-1)
		for j, c := range cols[1:] {
			lit, err := literal(d, c, values[i][j+1])
			if err != nil {
				return nil, err
			}
			sets = append(sets, sqlbuilder.Assign(c.Name, lit))
		}
		batch = append(batch, b.Update(table).Set(sets...).Where(cols[0].Name).Equal(key).Flush())
	}
	return batch, nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// The read and delete builders below expect a valid descriptor, as returned
// by NewTable; the Engine methods validate before calling them.

// BuildRangeByID selects rows whose identity lies in [start, end).
func BuildRangeByID(d *Dialect, t *Table, start, end int64, ascending bool) Query {
	id := t.Identity().Name
	sql := d.Builder().Select().All().From(t.Name).
		Where(id).GreaterEqual(itoa(start)).And(id).Lesser(itoa(end)).
		OrderBy(id).Direction(ascending).Flush()
	return Query{SQL: sql, Columns: t.OutputColumns()}
}

// BuildRangeByTime selects rows whose timestamp column lies in [from, until).
func BuildRangeByTime(d *Dialect, t *Table, column string, from, until time.Time, ascending bool) (Query, error) {
	if err := t.Validate(); err != nil {
		return Query{}, err
	}
	_, c, ok := t.Column(column)
	if !ok {
		return Query{}, fmt.Errorf("%w: table %s has no column %q", ErrInvalidName, t.Name, column)
	}
	if c.Kind != types.Timestamp {
		return Query{}, &TypeMismatchError{Kind: types.Timestamp, Column: c.Name, Got: c.Kind.String()}
	}
	lo, err := literal(d, c, from)
	if err != nil {
		return Query{}, err
	}
	hi, err := literal(d, c, until)
	if err != nil {
		return Query{}, err
	}
	sql := d.Builder().Select().All().From(t.Name).
		Where(c.Name).GreaterEqual(lo).And(c.Name).Lesser(hi).
		OrderBy(c.Name).Direction(ascending).Flush()
	return Query{SQL: sql, Columns: t.OutputColumns()}, nil
}

// BuildLastN selects the n rows with the highest identity. Ascending order is
// produced by wrapping the descending selection in an outer query so only n
// rows are ever sorted ascending.
func BuildLastN(d *Dialect, t *Table, n int64, ascending bool) Query {
	id := t.Identity().Name
	inner := d.Builder().Select().Top(n).All().From(t.Name).OrderBy(id).Desc().Limit(n)
	if !ascending {
		return Query{SQL: inner.Flush(), Columns: t.OutputColumns()}
	}
	sql := d.Builder().Select().All().FromSub(inner, "sub").OrderBy(id).Asc().Flush()
	return Query{SQL: sql, Columns: t.OutputColumns()}
}

// BuildRowByID selects the row with the given identity.
func BuildRowByID(d *Dialect, t *Table, id int64) Query {
	sql := d.Builder().Select().All().From(t.Name).Where(t.Identity().Name).Equal(itoa(id)).Flush()
	return Query{SQL: sql, Columns: t.OutputColumns()}
}

// BuildDeleteOldest deletes the n rows with the smallest identity.
func BuildDeleteOldest(d *Dialect, t *Table, n int64) string {
	return buildDeleteEdge(d, t, n, true)
}

// BuildDeleteNewest deletes the n rows with the largest identity.
func BuildDeleteNewest(d *Dialect, t *Table, n int64) string {
	return buildDeleteEdge(d, t, n, false)
}

func buildDeleteEdge(d *Dialect, t *Table, n int64, oldest bool) string {
	id := t.Identity().Name
	if d.DeleteOrderLimit {
		return d.Builder().DeleteFrom(t.Name).OrderBy(id).Direction(oldest).Limit(n).Flush()
	}
	inner := d.Builder().Select().Top(n).Columns(id).From(t.Name).OrderBy(id).Direction(oldest).Limit(n)
	return d.Builder().DeleteFrom(t.Name).Where(id).In(inner).Flush()
}

// InsertInto inserts rows into t in one transaction.
func (e *Engine) InsertInto(ctx context.Context, t *Table, rows ...Row) error {
	batch, err := BuildInsert(e.dialect, t, rows...)
	if err != nil {
		return err
	}
	return e.CommitBatch(ctx, batch)
}

// UpdateTable applies BuildUpdate's statements in one transaction.
func (e *Engine) UpdateTable(ctx context.Context, table string, columns [][]Column, values [][]any) error {
	batch, err := BuildUpdate(e.dialect, table, columns, values)
	if err != nil {
		return err
	}
	return e.CommitBatch(ctx, batch)
}

// RowsByID returns rows whose identity lies in [start, end).
func (e *Engine) RowsByID(ctx context.Context, t *Table, start, end int64, ascending bool) ([]Row, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	q := BuildRangeByID(e.dialect, t, start, end, ascending)
	return e.ReadQuery(ctx, q.SQL, q.Columns)
}

// RowsByTime returns rows whose timestamp column lies in [from, until).
func (e *Engine) RowsByTime(ctx context.Context, t *Table, column string, from, until time.Time, ascending bool) ([]Row, error) {
	q, err := BuildRangeByTime(e.dialect, t, column, from, until, ascending)
	if err != nil {
		return nil, err
	}
	return e.ReadQuery(ctx, q.SQL, q.Columns)
}

// LastNRows returns the n most recent rows; n <= 0 selects DefaultLastN.
func (e *Engine) LastNRows(ctx context.Context, t *Table, n int64, ascending bool) ([]Row, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = DefaultLastN
	}
	q := BuildLastN(e.dialect, t, n, ascending)
	return e.ReadQuery(ctx, q.SQL, q.Columns)
}

// RowByID returns the row with the given identity.
func (e *Engine) RowByID(ctx context.Context, t *Table, id int64) (Row, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	q := BuildRowByID(e.dialect, t, id)
	return e.single(ctx, q)
}

// LastRow returns the row with the highest identity.
func (e *Engine) LastRow(ctx context.Context, t *Table) (Row, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return e.single(ctx, BuildLastN(e.dialect, t, 1, false))
}

func (e *Engine) single(ctx context.Context, q Query) (Row, error) {
	rows, err := e.ReadQuery(ctx, q.SQL, q.Columns)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// DeleteLastNRows removes the n most recent rows. n may not exceed
// Config.MaxDeleteRowSize.
func (e *Engine) DeleteLastNRows(ctx context.Context, t *Table, n int64) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	if n > e.cfg.MaxDeleteRowSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrDeleteTooLarge, n, e.cfg.MaxDeleteRowSize)
	}
	return e.Commit(ctx, BuildDeleteNewest(e.dialect, t, n))
}
