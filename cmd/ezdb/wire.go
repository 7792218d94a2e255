//go:build wireinject

package main

import (
	"context"
	"io"

	"github.com/google/wire"

	"github.com/ezdb/ezdb/internal/config"
)

// initializeApp assembles the logger, retention locker, engine and handle
// described by cfg.
func initializeApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, func(), error) {
	wire.Build(
		provideLogger,
		provideLocker,
		provideEngine,
		provideHandle,
		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
