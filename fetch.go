package ezdb

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

// Chunk is one block of rows delivered by a FetchSession. The last chunk of
// a session has Final set; a failed session delivers its error in a final
// chunk.
type Chunk struct {
	Rows  []Row
	Final bool
	Err   error
}

// FetchSession streams the result of one query in chunks. After each full
// chunk the worker waits until Next or Cancel is called.
type FetchSession struct {
	engine *Engine
	query  string
	cols   []OutputColumn
	size   int

	chunks     chan Chunk
	resume     chan struct{}
	cancel     chan struct{}
	done       chan struct{}
	cancelOnce sync.Once
	cancelled  atomic.Bool
	delivered  atomic.Int64
	// err is written by the worker before chunks is closed.
	err error
}

// StartFetch runs query on a dedicated worker and returns the session
// delivering its rows. Only one session may be live per engine; a second
// call while one is running fails with ErrFetchInProgress.
func (e *Engine) StartFetch(ctx context.Context, query string, cols []OutputColumn, chunkSize int) (*FetchSession, error) {
	if chunkSize <= 0 {
		chunkSize = e.cfg.DefaultChunkSize
	}
	s := &FetchSession{
		engine: e,
		query:  query,
		cols:   cols,
		size:   chunkSize,
		chunks: make(chan Chunk),
		resume: make(chan struct{}, 1),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if !e.fetch.CompareAndSwap(nil, s) {
		return nil, ErrFetchInProgress
	}
	conn, err := e.conn(ctx)
	if err != nil {
		e.fetch.CompareAndSwap(s, nil)
		return nil, err
	}
	e.logger.Debug("fetch started", slog.String("sql", query), slog.Int("chunk_size", chunkSize))
	go s.run(ctx, conn)
	return s, nil
}

// NextFetch resumes the live session.
func (e *Engine) NextFetch() error {
	s := e.fetch.Load()
	if s == nil {
		return ErrNoFetch
	}
	s.Next()
	return nil
}

// CancelFetch cancels the live session.
func (e *Engine) CancelFetch() error {
	s := e.fetch.Load()
	if s == nil {
		return ErrNoFetch
	}
	s.Cancel()
	return nil
}

// Chunks returns the channel chunks are delivered on. It is closed when the
// worker exits.
func (s *FetchSession) Chunks() <-chan Chunk { return s.chunks }

// Done is closed once the worker has exited and released its connection.
func (s *FetchSession) Done() <-chan struct{} { return s.done }

// Next lets the worker continue after a chunk. A call made while the worker
// is still filling a chunk is remembered for the next wait.
func (s *FetchSession) Next() {
	select {
	case s.resume <- struct{}{}:
	default:
	}
}

// Cancel stops the worker. It is checked once per decoded row; no chunk is
// delivered after the worker observes it.
func (s *FetchSession) Cancel() {
	s.cancelOnce.Do(func() {
		s.cancelled.Store(true)
		close(s.cancel)
	})
}

// Cancelled reports whether Cancel has been called.
func (s *FetchSession) Cancelled() bool { return s.cancelled.Load() }

// Err returns the error that ended the session early, or nil. It is only
// meaningful once Chunks is closed or Done is closed.
func (s *FetchSession) Err() error { return s.err }

// Delivered returns the number of rows handed to the consumer so far.
func (s *FetchSession) Delivered() int64 { return s.delivered.Load() }

// Collect drains the session, resuming after every chunk, and returns all
// rows. It stops at the first error or when ctx is done. A stream ended
// before its final chunk without Cancel yields the error that ended it.
func (s *FetchSession) Collect(ctx context.Context) ([]Row, error) {
	var out []Row
	for {
		select {
		case <-ctx.Done():
			s.Cancel()
			return out, ctx.Err()
		case c, ok := <-s.chunks:
			if !ok {
				return out, s.truncated()
			}
			if c.Err != nil {
				return out, c.Err
			}
			out = append(out, c.Rows...)
			if c.Final {
				return out, nil
			}
			s.Next()
		}
	}
}

// truncated explains a channel closed before the final chunk.
func (s *FetchSession) truncated() error {
	switch {
	case s.err != nil:
		return s.err
	case s.cancelled.Load():
		return nil
	}
	return io.ErrUnexpectedEOF
}

func (s *FetchSession) run(ctx context.Context, conn *sqlx.Conn) {
	e := s.engine
	defer func() {
		e.release(conn)
		e.fetch.CompareAndSwap(s, nil)
		close(s.chunks)
		close(s.done)
		e.logger.Debug("fetch finished", slog.Int64("rows", s.delivered.Load()), slog.Bool("cancelled", s.cancelled.Load()))
	}()

	if err := s.stream(ctx, conn); err != nil && !s.cancelled.Load() {
		s.err = err
		s.emit(ctx, Chunk{Err: err, Final: true})
	}
}

// stream delivers the result set chunk by chunk. It returns nil once the
// final chunk is handed over or the session is cancelled, and the cause of
// any other early exit, including the end of ctx.
func (s *FetchSession) stream(ctx context.Context, conn *sqlx.Conn) error {
	rows, err := conn.QueryxContext(ctx, s.query)
	if err != nil {
		return &ExecError{Statement: s.query, Index: -1, Err: err}
	}
	defer rows.Close()

	buf := make([]Row, 0, s.size)
	for rows.Next() {
		if s.cancelled.Load() {
			return nil
		}
		row, err := s.engine.scanRow(rows, s.cols)
		if err != nil {
			return err
		}
		buf = append(buf, row)
		if len(buf) < s.size {
			continue
		}
		if !s.emit(ctx, Chunk{Rows: buf}) || !s.wait(ctx) {
			return ctx.Err()
		}
		buf = make([]Row, 0, s.size)
	}
	if err := rows.Err(); err != nil {
		return &ExecError{Statement: s.query, Index: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.emit(ctx, Chunk{Rows: buf, Final: true}) {
		return ctx.Err()
	}
	return nil
}

// emit hands c to the consumer unless the session is cancelled first.
func (s *FetchSession) emit(ctx context.Context, c Chunk) bool {
	if s.cancelled.Load() {
		return false
	}
	select {
	case s.chunks <- c:
		s.delivered.Add(int64(len(c.Rows)))
		return true
	case <-s.cancel:
		return false
	case <-ctx.Done():
		return false
	}
}

// wait blocks until the consumer resumes or cancels.
func (s *FetchSession) wait(ctx context.Context) bool {
	select {
	case <-s.resume:
		return !s.cancelled.Load()
	case <-s.cancel:
		return false
	case <-ctx.Done():
		return false
	}
}
