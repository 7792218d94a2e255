// Package ezdb generates and executes dialect-specific SQL for logical table
// descriptors. It keeps a trigger-maintained row counter per table, trims
// tables that outgrow their retention threshold in throttled passes, and
// streams large result sets in flow-controlled chunks.
package ezdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ezdb/ezdb/internal/lock"
)

const pingTimeout = 5 * time.Second

// Engine executes statements for one dialect against one target. Every
// operation acquires its own connection and releases it before returning.
type Engine struct {
	dialect *Dialect
	cfg     Config
	logger  *slog.Logger
	locker  Locker

	mu     sync.RWMutex
	db     *sqlx.DB
	target Target
	owned  bool

	listeners listenerRegistry
	fetch     atomic.Pointer[FetchSession]
	closed    atomic.Bool
}

// Open resolves the target's dialect, connects and returns an engine that
// owns the connection pool. Idle connections are not kept, so no physical
// connection is reused across calls.
func Open(ctx context.Context, target Target, cfg Config) (*Engine, error) {
	d, err := LookupDialect(target.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, d, target)
	if err != nil {
		return nil, err
	}
	e := newEngine(d, db, cfg)
	e.target = target
	e.owned = true
	e.logger.Info("engine opened", slog.String("dialect", d.Name), slog.String("driver", d.Driver))
	return e, nil
}

// New wraps an existing database handle. The caller keeps ownership of db.
func New(db *sql.DB, d *Dialect, cfg Config) *Engine {
	return newEngine(d, sqlx.NewDb(db, d.Driver), cfg)
}

func newEngine(d *Dialect, db *sqlx.DB, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Engine{
		dialect: d,
		cfg:     cfg,
		logger:  cfg.Logger.With(slog.String("dialect", d.Name)),
		locker:  locker,
		db:      db,
	}
}

func openDB(ctx context.Context, d *Dialect, target Target) (*sqlx.DB, error) {
	if d.DSN == nil {
		return nil, d.notSupported("connection targets")
	}
	if target.CreateIfMissing && d.Bootstrap != nil {
		if err := d.Bootstrap(ctx, target); err != nil {
			return nil, fmt.Errorf("ezdb: bootstrap %s: %w", d.Name, err)
		}
	}
	dsn, err := d.DSN(target)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ezdb: open %s connection: %w", d.Name, err)
	}
	db.SetMaxIdleConns(0)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ezdb: ping %s: %w", d.Name, err)
	}
	return db, nil
}

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() *Dialect { return e.dialect }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Target returns the current connection target.
func (e *Engine) Target() Target {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.target
}

// Retarget points the engine at a different server or database. File based
// dialects do not support it.
func (e *Engine) Retarget(ctx context.Context, target Target) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.dialect.FileBased {
		return e.dialect.notSupported("changing the connection target")
	}
	target.Dialect = e.dialect.Name
	db, err := openDB(ctx, e.dialect, target)
	if err != nil {
		return err
	}

	e.mu.Lock()
	old, owned := e.db, e.owned
	e.db, e.target, e.owned = db, target, true
	e.mu.Unlock()

	if owned {
		if err := old.Close(); err != nil {
			e.logger.Warn("closing previous pool failed", slog.Any("error", err))
		}
	}
	e.logger.Info("engine retargeted", slog.String("host", target.Host), slog.String("database", target.Database))
	return nil
}

// Close cancels any running fetch and releases the pool if the engine owns it.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s := e.fetch.Load(); s != nil {
		s.Cancel()
		<-s.Done()
	}
	e.mu.RLock()
	db, owned := e.db, e.owned
	e.mu.RUnlock()
	if !owned {
		return nil
	}
	e.logger.Debug("closing database pool")
	return db.Close()
}

// conn acquires a dedicated connection for one call.
func (e *Engine) conn(ctx context.Context) (*sqlx.Conn, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	e.mu.RLock()
	db := e.db
	e.mu.RUnlock()
	c, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ezdb: acquire connection: %w", err)
	}
	return c, nil
}

func (e *Engine) release(c *sqlx.Conn) {
	if err := c.Close(); err != nil {
		e.logger.Warn("releasing connection failed", slog.Any("error", err))
	}
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
