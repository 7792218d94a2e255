// Package redis provides a retention Locker backed by Redis, for deployments
// where several processes trim the same tables.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ezdb/ezdb"
)

const pingTimeout = 5 * time.Second

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options holds configuration for the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every lock key.
	Prefix string
	Logger *slog.Logger
}

// Locker implements ezdb.Locker with SET NX and a token-checked delete.
type Locker struct {
	rdb               *redis.Client
	prefix            string
	logger            *slog.Logger
	tokens            sync.Map // map[string]string
	createdInternally bool
}

var (
	_ ezdb.Locker = (*Locker)(nil)
	_ io.Closer   = (*Locker)(nil)
)

// New creates a Locker. If rdb is not nil it is used as is and stays owned by
// the caller; otherwise a client is created from opts and pinged.
func New(rdb *redis.Client, opts *Options) (*Locker, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Locker{rdb: rdb, prefix: opts.Prefix, logger: logger}
	if rdb == nil {
		l.rdb = redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		l.createdInternally = true

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := l.rdb.Ping(ctx).Err(); err != nil {
			_ = l.rdb.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}
	logger.Debug("redis locker initialized", slog.String("addr", l.rdb.Options().Addr))
	return l, nil
}

// Key returns the Redis key used for a lock key.
func (l *Locker) Key(key string) string { return l.prefix + key }

// AcquireLock tries to take the lock with SET NX. The lock expires after ttl
// if it is never released.
func (l *Locker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.rdb.SetNX(ctx, l.Key(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX error for lock key '%s': %w", key, err)
	}
	if acquired {
		l.tokens.Store(key, token)
	}
	return acquired, nil
}

// ReleaseLock deletes the lock if this Locker still holds it.
func (l *Locker) ReleaseLock(ctx context.Context, key string) error {
	v, ok := l.tokens.LoadAndDelete(key)
	if !ok {
		return fmt.Errorf("redis lock key '%s' is not held", key)
	}
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.Key(key)}, v.(string)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release error for lock key '%s': %w", key, err)
	}
	if n == 0 {
		l.logger.Warn("lock expired before release", slog.String("key", key))
	}
	return nil
}

// Close closes the Redis client if New created it.
func (l *Locker) Close() error {
	if l.createdInternally && l.rdb != nil {
		return l.rdb.Close()
	}
	return nil
}
