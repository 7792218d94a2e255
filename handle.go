package ezdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ezdb/ezdb/internal/utils"
)

// Handle owns a table registry on top of an Engine and runs the periodic
// retention and status checks. Errors from timer driven work are reported
// through EventError listeners.
type Handle struct {
	engine *Engine

	mu     sync.RWMutex
	tables *utils.OrderedMap[string, *Table]

	online   atomic.Bool
	checked  atomic.Bool
	stopMu   sync.Mutex
	stoppers []context.CancelFunc
	wg       sync.WaitGroup
}

// NewHandle creates a handle with an empty registry.
func NewHandle(e *Engine) *Handle {
	return &Handle{
		engine: e,
		tables: utils.NewOrderedMap[string, *Table](),
	}
}

// Engine returns the underlying engine.
func (h *Handle) Engine() *Engine { return h.engine }

// RegisterListener adds a listener on the underlying engine.
func (h *Handle) RegisterListener(t EventType, l EventListener) {
	h.engine.RegisterListener(t, l)
}

// AddTable creates t and adds it to the registry.
func (h *Handle) AddTable(ctx context.Context, t *Table) error {
	return h.AddTables(ctx, t)
}

// AddTables creates tables and adds them to the registry. Names already
// registered are rejected before anything is created.
func (h *Handle) AddTables(ctx context.Context, tables ...*Table) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup || h.tables.Has(t.Name) {
			return fmt.Errorf("%w: %s", ErrTableExists, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	if err := h.engine.AddTables(ctx, tables...); err != nil {
		return err
	}
	for _, t := range tables {
		h.tables.Set(t.Name, t)
	}
	return nil
}

// Register adds tables to the registry without creating them, for tables
// that already exist in the database.
func (h *Handle) Register(tables ...*Table) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if h.tables.Has(t.Name) {
			return fmt.Errorf("%w: %s", ErrTableExists, t.Name)
		}
	}
	for _, t := range tables {
		h.tables.Set(t.Name, t)
	}
	return nil
}

// DropTables drops registered tables. Every name must be registered.
func (h *Handle) DropTables(ctx context.Context, names ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range names {
		if !h.tables.Has(n) {
			return fmt.Errorf("%w: %s", ErrUnknownTable, n)
		}
	}
	if err := h.engine.DropTables(ctx, names...); err != nil {
		return err
	}
	for _, n := range names {
		h.tables.Delete(n)
	}
	return nil
}

// Table returns a registered table.
func (h *Handle) Table(name string) (*Table, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tables.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// Tables returns the registered tables in registration order.
func (h *Handle) Tables() []*Table {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tables.Values()
}

func (h *Handle) Insert(ctx context.Context, table string, rows ...Row) error {
	t, err := h.Table(table)
	if err != nil {
		return err
	}
	return h.engine.InsertInto(ctx, t, rows...)
}

func (h *Handle) Update(ctx context.Context, table string, columns [][]Column, values [][]any) error {
	if _, err := h.Table(table); err != nil {
		return err
	}
	return h.engine.UpdateTable(ctx, table, columns, values)
}

func (h *Handle) RowByID(ctx context.Context, table string, id int64) (Row, error) {
	t, err := h.Table(table)
	if err != nil {
		return nil, err
	}
	return h.engine.RowByID(ctx, t, id)
}

func (h *Handle) LastRow(ctx context.Context, table string) (Row, error) {
	t, err := h.Table(table)
	if err != nil {
		return nil, err
	}
	return h.engine.LastRow(ctx, t)
}

func (h *Handle) LastNRows(ctx context.Context, table string, n int64, ascending bool) ([]Row, error) {
	t, err := h.Table(table)
	if err != nil {
		return nil, err
	}
	return h.engine.LastNRows(ctx, t, n, ascending)
}

func (h *Handle) RowsByTime(ctx context.Context, table, column string, from, until time.Time, ascending bool) ([]Row, error) {
	t, err := h.Table(table)
	if err != nil {
		return nil, err
	}
	return h.engine.RowsByTime(ctx, t, column, from, until, ascending)
}

// RowsByIndex returns rows whose identity lies in [start, end).
func (h *Handle) RowsByIndex(ctx context.Context, table string, start, end int64, ascending bool) ([]Row, error) {
	t, err := h.Table(table)
	if err != nil {
		return nil, err
	}
	return h.engine.RowsByID(ctx, t, start, end, ascending)
}

func (h *Handle) DeleteLastNRows(ctx context.Context, table string, n int64) (int64, error) {
	t, err := h.Table(table)
	if err != nil {
		return 0, err
	}
	return h.engine.DeleteLastNRows(ctx, t, n)
}

func (h *Handle) CurrentRows(ctx context.Context, table string) (int64, error) {
	t, err := h.Table(table)
	if err != nil {
		return 0, err
	}
	return h.engine.CurrentRows(ctx, t)
}

// CheckDeleteTables runs one retention evaluation over every registered table.
func (h *Handle) CheckDeleteTables(ctx context.Context) ([]RetentionReport, error) {
	return h.engine.CheckDeleteTables(ctx, h.Tables())
}

// Verify checks every registered table against the database and joins the
// mismatches found.
func (h *Handle) Verify(ctx context.Context) error {
	var errs []error
	for _, t := range h.Tables() {
		if err := h.engine.VerifyTable(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Online reports the last checked database status.
func (h *Handle) Online() bool { return h.online.Load() }

// StartRetention runs CheckDeleteTables after Config.RetentionStartDelay and
// then every Config.RetentionInterval until ctx is done or the handle closes.
func (h *Handle) StartRetention(ctx context.Context) {
	cfg := h.engine.Config()
	h.loop(ctx, "retention", cfg.RetentionStartDelay, cfg.RetentionInterval, func(ctx context.Context) {
		if _, err := h.CheckDeleteTables(ctx); err != nil && ctx.Err() == nil {
			h.engine.emit(ctx, Event{Type: EventError, Err: err, Message: err.Error()})
		}
	})
}

// StartStatusMonitor checks the database every Config.StatusInterval and
// emits EventStatusChanged whenever the result differs from the last check.
func (h *Handle) StartStatusMonitor(ctx context.Context) {
	cfg := h.engine.Config()
	h.loop(ctx, "status", 0, cfg.StatusInterval, h.check)
}

func (h *Handle) check(ctx context.Context) {
	online := h.engine.CheckStatus(ctx)
	if ctx.Err() != nil {
		return
	}
	prev := h.online.Swap(online)
	first := !h.checked.Swap(true)
	if first || prev != online {
		h.engine.logger.Info("database status", slog.Bool("online", online))
		h.engine.emit(ctx, Event{Type: EventStatusChanged, Online: online})
	}
}

func (h *Handle) loop(ctx context.Context, name string, delay, interval time.Duration, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(ctx)
	h.stopMu.Lock()
	h.stoppers = append(h.stoppers, cancel)
	h.stopMu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.engine.logger.Debug("timer started", slog.String("timer", name), slog.Duration("interval", interval))
		if err := pause(ctx, delay); err != nil {
			return
		}
		fn(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// Close stops the timers, waits for them and closes the engine.
func (h *Handle) Close() error {
	h.stopMu.Lock()
	for _, stop := range h.stoppers {
		stop()
	}
	h.stoppers = nil
	h.stopMu.Unlock()
	h.wg.Wait()
	return h.engine.Close()
}
