// Command ezdb manages and inspects ezdb tables from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ezdb/ezdb/drivers/db/access"
	_ "github.com/ezdb/ezdb/drivers/db/duckdb"
	_ "github.com/ezdb/ezdb/drivers/db/mysql"
	_ "github.com/ezdb/ezdb/drivers/db/postgres"
	_ "github.com/ezdb/ezdb/drivers/db/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
