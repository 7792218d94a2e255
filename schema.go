package ezdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/types"
)

// BuildCreateTables renders the DDL for tables. With trigger support every
// table also gets its counter table, the counter seed and, unless installed
// reports them present, the insert and delete triggers. Any unsupported
// column type aborts before a statement is returned.
func BuildCreateTables(d *Dialect, tables []*Table, installed map[string]bool) (Batch, error) {
	var batch Batch
	for _, t := range tables {
		stmts, err := buildCreateTable(d, t, installed[t.Name])
		if err != nil {
			return nil, err
		}
		batch = append(batch, stmts...)
	}
	return batch, nil
}

func buildCreateTable(d *Dialect, t *Table, triggersInstalled bool) ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if d.Identity == nil {
		return nil, d.notSupported("identity columns")
	}
	defs := make([]string, 0, len(t.Columns))
	defs = append(defs, t.Identity().Name+" "+d.Identity(t))
	for _, c := range t.Columns[1:] {
		typ, err := d.TypeName(c.Kind)
		if err != nil {
			return nil, err
		}
		defs = append(defs, c.Name+" "+typ+" NOT NULL")
	}

	var out []string
	if d.Prelude != nil {
		out = append(out, d.Prelude(t)...)
	}
	b := d.Builder()
	out = append(out, b.CreateTable(t.Name).Definitions(defs...).Flush())
	if !d.SupportsTriggers() {
		return out, nil
	}

	counter := CounterTable(t.Name)
	out = append(out,
		b.CreateTable(counter).Definitions("id INTEGER PRIMARY KEY", "rowCount INTEGER").Flush(),
		b.InsertIgnore(counter, "id", "rowCount").Values("1", "0").IgnoreSuffix().Flush(),
	)
	if !triggersInstalled {
		out = append(out, d.Triggers.CreateTriggers(t.Name)...)
	}
	return out, nil
}

// BuildDropTables renders DROP statements for each table and, with trigger
// support, its counter artifacts.
func BuildDropTables(d *Dialect, names ...string) (Batch, error) {
	var batch Batch
	b := d.Builder()
	for _, name := range names {
		if !ValidIdentifier(name) {
			return nil, fmt.Errorf("%w: table name %q", ErrInvalidName, name)
		}
		batch = append(batch, b.DropTable(name).Flush())
		if d.SupportsTriggers() {
			batch = append(batch, d.Triggers.DropTriggers(name)...)
			batch = append(batch, b.DropTable(CounterTable(name)).Flush())
		}
		if d.Cleanup != nil {
			batch = append(batch, d.Cleanup(name)...)
		}
	}
	return batch, nil
}

// BuildRowCount renders the current row count lookup: the counter table on
// trigger dialects, an aggregate over the identity otherwise.
func BuildRowCount(d *Dialect, t *Table) Query {
	b := d.Builder()
	if d.SupportsTriggers() {
		b.Select().Columns("rowCount").From(CounterTable(t.Name)).Where("id").Equal("1")
	} else {
		b.Select().Columns("COUNT(" + t.Identity().Name + ")").From(t.Name)
	}
	return Query{SQL: b.Flush(), Columns: []OutputColumn{{Position: 0, Kind: types.Int64}}}
}

// CreateTables creates tables and their row count artifacts in one batch.
func (e *Engine) CreateTables(ctx context.Context, tables ...*Table) error {
	installed := make(map[string]bool, len(tables))
	if e.dialect.SupportsTriggers() {
		for _, t := range tables {
			ok, err := e.triggersInstalled(ctx, t.Name)
			if err != nil {
				return err
			}
			installed[t.Name] = ok
		}
	}
	batch, err := BuildCreateTables(e.dialect, tables, installed)
	if err != nil {
		return err
	}
	if err := e.CommitBatch(ctx, batch); err != nil {
		return err
	}
	for _, t := range tables {
		e.logger.Info("table created", slog.String("table", t.Name), slog.Bool("triggers_reused", installed[t.Name]))
	}
	return nil
}

// AddTables is CreateTables under the name the registry uses.
func (e *Engine) AddTables(ctx context.Context, tables ...*Table) error {
	return e.CreateTables(ctx, tables...)
}

// DropTables drops tables and their counter tables.
func (e *Engine) DropTables(ctx context.Context, names ...string) error {
	batch, err := BuildDropTables(e.dialect, names...)
	if err != nil {
		return err
	}
	return e.CommitBatch(ctx, batch)
}

// triggersInstalled reports whether both counter triggers of table exist.
// Exactly one of them present is reported as ErrPartialTriggers.
func (e *Engine) triggersInstalled(ctx context.Context, table string) (bool, error) {
	query := e.dialect.Triggers.ListTriggers(e.Target().Database, table)
	names, err := e.firstColumn(ctx, query)
	if err != nil {
		return false, err
	}
	found := 0
	for _, n := range names {
		if strings.EqualFold(n, AddTrigger(table)) || strings.EqualFold(n, SubTrigger(table)) {
			found++
		}
	}
	switch found {
	case 0:
		return false, nil
	case 2:
		return true, nil
	}
	return false, fmt.Errorf("%w: table %s has %d of 2", ErrPartialTriggers, table, found)
}

// firstColumn returns the first column of every result row as text.
func (e *Engine) firstColumn(ctx context.Context, query string) ([]string, error) {
	conn, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer e.release(conn)

	rows, err := conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, &ExecError{Statement: query, Index: -1, Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("ezdb: scan row: %w", err)
		}
		if len(vals) == 0 {
			continue
		}
		s, err := codec.Decode(vals[0], types.LongText, e.dialect.Format)
		if err != nil {
			return nil, err
		}
		text, _ := types.TextOf(s)
		out = append(out, text)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecError{Statement: query, Index: -1, Err: err}
	}
	return out, nil
}

// TableColumns returns the physical column names of table in ordinal order.
// An empty result means the table does not exist.
func (e *Engine) TableColumns(ctx context.Context, table string) ([]string, error) {
	if e.dialect.Introspect == nil {
		return nil, e.dialect.notSupported("table introspection")
	}
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: table name %q", ErrInvalidName, table)
	}
	return e.firstColumn(ctx, e.dialect.Introspect(e.Target().Database, table))
}

// VerifyTable compares t with the physical table. A missing table or a
// column list differing in names or order is reported as ErrSchemaMismatch.
func (e *Engine) VerifyTable(ctx context.Context, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	cols, err := e.TableColumns(ctx, t.Name)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: table %s does not exist", ErrSchemaMismatch, t.Name)
	}
	want := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		want[i] = c.Name
	}
	if len(cols) != len(want) {
		return fmt.Errorf("%w: table %s has columns %v, want %v", ErrSchemaMismatch, t.Name, cols, want)
	}
	for i := range want {
		if !strings.EqualFold(cols[i], want[i]) {
			return fmt.Errorf("%w: table %s has columns %v, want %v", ErrSchemaMismatch, t.Name, cols, want)
		}
	}
	return nil
}

// CurrentRows returns the row count of t. A missing counter row counts as 0.
func (e *Engine) CurrentRows(ctx context.Context, t *Table) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	q := BuildRowCount(e.dialect, t)
	rows, err := e.ReadQuery(ctx, q.SQL, q.Columns)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, ok := rows[0][0].(int64)
	if !ok {
		return 0, errors.New("ezdb: row count is not an integer")
	}
	return n, nil
}
