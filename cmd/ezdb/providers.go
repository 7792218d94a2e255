package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/ezdb/ezdb"
	redislock "github.com/ezdb/ezdb/drivers/lock/redis"
	"github.com/ezdb/ezdb/internal/config"
	"github.com/ezdb/ezdb/internal/lock"
)

// app is the dependency graph a command works with.
type app struct {
	Config *config.Config
	Logger *slog.Logger
	Handle *ezdb.Handle
}

func (a *app) Engine() *ezdb.Engine { return a.Handle.Engine() }

func provideLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return cfg.Logger(w)
}

// provideLocker uses Redis when an address is configured and an in-process
// lock otherwise.
func provideLocker(cfg *config.Config, logger *slog.Logger) (ezdb.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	l, err := redislock.New(nil, &redislock.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := l.Close(); err != nil {
			logger.Warn("closing redis locker", slog.Any("error", err))
		}
	}
	return l, cleanup, nil
}

func provideEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, locker ezdb.Locker) (*ezdb.Engine, error) {
	engineCfg := cfg.Engine
	engineCfg.Logger = logger
	engineCfg.Locker = locker
	return ezdb.Open(ctx, cfg.Target, engineCfg)
}

// provideHandle registers the configured tables without creating them. The
// handle owns the engine from here on.
func provideHandle(e *ezdb.Engine, cfg *config.Config) (*ezdb.Handle, func(), error) {
	h := ezdb.NewHandle(e)
	if err := h.Register(cfg.TablePointers()...); err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := h.Close(); err != nil {
			e.Logger().Warn("closing handle", slog.Any("error", err))
		}
	}
	return h, cleanup, nil
}
