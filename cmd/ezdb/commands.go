package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ezdb/ezdb"
)

func (c *cli) newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([]table.Row, 0)
			for _, name := range ezdb.Dialects() {
				d, err := ezdb.LookupDialect(name)
				if err != nil {
					return err
				}
				rows = append(rows, table.Row{d.Name, d.Driver, d.SupportsTriggers(), d.FileBased})
			}
			renderTable(cmd.OutOrStdout(), table.Row{"dialect", "driver", "triggers", "file"}, rows)
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				e := a.Engine()
				target := e.Target()
				location := target.Path
				if location == "" {
					location = target.Host + "/" + target.Database
				}
				online := e.CheckStatus(ctx)
				if c.output == "json" {
					return renderJSON(cmd.OutOrStdout(), map[string]any{
						"dialect": e.Dialect().Name, "target": location, "online": online,
					})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"dialect", "target", "online"},
					[]table.Row{{e.Dialect().Name, location, online}})
				return nil
			})
		},
	}
}

func (c *cli) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare configured tables with the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.Handle.Verify(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d tables match\n", len(a.Handle.Tables()))
				return nil
			})
		},
	}
}

func (c *cli) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [table...]",
		Short: "Create configured tables and their row counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				selected, err := tables(a.Handle, args)
				if err != nil {
					return err
				}
				if len(selected) == 0 {
					return errors.New("no tables configured")
				}
				if err := a.Engine().CreateTables(ctx, selected...); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %d tables\n", len(selected))
				return nil
			})
		},
	}
}

func (c *cli) newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop table...",
		Short: "Drop tables and their row counters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.Handle.DropTables(ctx, args...); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dropped %d tables\n", len(args))
				return nil
			})
		},
	}
}

func (c *cli) newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [table...]",
		Short: "Show the current row count of tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				selected, err := tables(a.Handle, args)
				if err != nil {
					return err
				}
				type count struct {
					Table   string `json:"table"`
					Rows    int64  `json:"rows"`
					MaxRows int64  `json:"max_rows"`
				}
				counts := make([]count, 0, len(selected))
				for _, t := range selected {
					n, err := a.Engine().CurrentRows(ctx, t)
					if err != nil {
						return err
					}
					counts = append(counts, count{Table: t.Name, Rows: n, MaxRows: t.MaxRows})
				}
				if c.output == "json" {
					return renderJSON(cmd.OutOrStdout(), counts)
				}
				rows := make([]table.Row, 0, len(counts))
				for _, n := range counts {
					rows = append(rows, table.Row{n.Table, n.Rows, n.MaxRows})
				}
				renderTable(cmd.OutOrStdout(), table.Row{"table", "rows", "max rows"}, rows)
				return nil
			})
		},
	}
}

func (c *cli) newQueryCmd() *cobra.Command {
	var (
		last      int64
		ascending bool
		fromID    int64
		toID      int64
		column    string
		since     string
		until     string
	)
	cmd := &cobra.Command{
		Use:   "query table",
		Short: "Read rows by id range, time range or the most recent rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				t, err := a.Handle.Table(args[0])
				if err != nil {
					return err
				}
				var rows []ezdb.Row
				switch {
				case column != "":
					from, err := parseTime(since)
					if err != nil {
						return err
					}
					to, err := parseTime(until)
					if err != nil {
						return err
					}
					rows, err = a.Handle.RowsByTime(ctx, t.Name, column, from, to, ascending)
					if err != nil {
						return err
					}
				case cmd.Flags().Changed("from") || cmd.Flags().Changed("to"):
					rows, err = a.Handle.RowsByIndex(ctx, t.Name, fromID, toID, ascending)
				default:
					rows, err = a.Handle.LastNRows(ctx, t.Name, last, ascending)
				}
				if err != nil {
					return err
				}
				return renderRows(cmd.OutOrStdout(), c.output, t, rows)
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&last, "last", ezdb.DefaultLastN, "number of most recent rows")
	f.BoolVar(&ascending, "asc", false, "order ascending")
	f.Int64Var(&fromID, "from", 0, "first id of the range")
	f.Int64Var(&toID, "to", 0, "id after the last one of the range")
	f.StringVar(&column, "column", "", "timestamp column for a time range")
	f.StringVar(&since, "since", "", "start of the time range (RFC 3339)")
	f.StringVar(&until, "until", "", "end of the time range (RFC 3339)")
	return cmd
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("time range needs --since and --until")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

func (c *cli) newDeleteCmd() *cobra.Command {
	var last int64
	cmd := &cobra.Command{
		Use:   "delete table",
		Short: "Delete the most recent rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				n, err := a.Handle.DeleteLastNRows(ctx, args[0], last)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows\n", n)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&last, "last", 1, "number of rows to delete")
	return cmd
}

func (c *cli) newRetentionCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Trim tables that reached their row limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if watch {
					for _, ev := range []ezdb.EventType{ezdb.EventRetentionStarted, ezdb.EventRetentionFinished, ezdb.EventError} {
						a.Handle.RegisterListener(ev, func(_ context.Context, e ezdb.Event) error {
							_, err := fmt.Fprintln(out, e.Message)
							return err
						})
					}
					a.Handle.StartRetention(ctx)
					<-ctx.Done()
					return nil
				}

				reports, err := a.Handle.CheckDeleteTables(ctx)
				if c.output == "json" {
					if rerr := renderJSON(out, reports); rerr != nil {
						return rerr
					}
					return err
				}
				rows := make([]table.Row, 0, len(reports))
				for _, r := range reports {
					status := "ok"
					switch {
					case r.Skipped:
						status = "skipped"
					case r.Passes > 0:
						status = "trimmed"
					}
					rows = append(rows, table.Row{r.Table, status, r.Plan.Count, r.Plan.Threshold, r.Passes, r.Deleted})
				}
				renderTable(out, table.Row{"table", "status", "rows", "max rows", "passes", "deleted"}, rows)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running on the configured retention interval")
	return cmd
}

func (c *cli) newFetchCmd() *cobra.Command {
	var maxChunks int
	cmd := &cobra.Command{
		Use:   "fetch table",
		Short: "Stream a whole table in chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				t, err := a.Handle.Table(args[0])
				if err != nil {
					return err
				}
				query := a.Engine().Dialect().Builder().Select().All().From(t.Name).Flush()
				session, err := a.Engine().StartFetch(ctx, query, t.OutputColumns(), 0)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				seen := 0
				for chunk := range session.Chunks() {
					if chunk.Err != nil {
						return chunk.Err
					}
					seen++
					_, _ = fmt.Fprintln(out, "chunk "+strconv.Itoa(seen))
					if err := renderRows(out, c.output, t, chunk.Rows); err != nil {
						session.Cancel()
						return err
					}
					if chunk.Final {
						break
					}
					if maxChunks > 0 && seen >= maxChunks {
						session.Cancel()
						break
					}
					session.Next()
				}
				<-session.Done()
				if err := session.Err(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "fetched %d rows\n", session.Delivered())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "stop after this many chunks (0 for all)")
	return cmd
}
