package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

type cli struct {
	cfgFile string
	output  string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ezdb",
		Short: "ezdb - dialect independent table storage with bounded retention",
		Long: `ezdb creates tables with trigger maintained row counters, reads and trims
them, and streams large result sets, on SQLite, MySQL, PostgreSQL, DuckDB
and Access.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "dialects" {
				return nil
			}
			cfg, err := config.Load(c.cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: ./ezdb.yaml)")
	pf.StringVarP(&c.output, "output", "o", "table", "output format (table|json)")
	pf.String("dialect", "", "database dialect ("+strings.Join(ezdb.Dialects(), "|")+")")
	pf.String("path", "", "database file for file based dialects")
	pf.String("host", "", "database host")
	pf.Int("port", 0, "database port")
	pf.String("database", "", "database name")
	pf.String("user", "", "database user")
	pf.String("password", "", "database password")
	pf.Bool("create-if-missing", false, "create the database on open where supported")
	pf.String("redis-addr", "", "redis address for the retention lock")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.Int("chunk-size", 0, "rows per fetch chunk")
	pf.Int64("max-delete-rows", 0, "largest number of rows one delete may remove")
	pf.Duration("retention-pause", 0, "pause between retention passes")

	_ = root.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return ezdb.Dialects(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		c.newDialectsCmd(),
		c.newStatusCmd(),
		c.newVerifyCmd(),
		c.newCreateCmd(),
		c.newDropCmd(),
		c.newCountCmd(),
		c.newQueryCmd(),
		c.newDeleteCmd(),
		c.newRetentionCmd(),
		c.newFetchCmd(),
	)
	return root
}

// run builds the application for one command and tears it down afterwards.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, cleanup, err := initializeApp(ctx, c.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, a)
}

// tables resolves names against the registry; no names selects every table.
func tables(h *ezdb.Handle, names []string) ([]*ezdb.Table, error) {
	if len(names) == 0 {
		return h.Tables(), nil
	}
	out := make([]*ezdb.Table, 0, len(names))
	for _, n := range names {
		t, err := h.Table(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
