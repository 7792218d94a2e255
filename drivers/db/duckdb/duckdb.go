// Package duckdb registers the DuckDB dialect, backed by marcboeker/go-duckdb.
// DuckDB has no triggers, so row counts come from an aggregate query.
package duckdb

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// Name is the dialect name used in targets and configuration.
const Name = "duckdb"

func init() {
	ezdb.Register(Dialect())
}

func sequence(table string) string { return table + "_id_seq" }

// Dialect returns the DuckDB dialect descriptor.
func Dialect() *ezdb.Dialect {
	return &ezdb.Dialect{
		Name:   Name,
		Driver: "duckdb",
		Keywords: sqlbuilder.Keywords{
			Limit:        sqlbuilder.LimitClause,
			IfNotExists:  true,
			IfExists:     true,
			InsertIgnore: "INSERT OR IGNORE INTO",
		},
		Format: codec.Standard,
		TypeNames: map[types.Kind]string{
			types.TinyInt:    "TINYINT",
			types.SmallInt:   "SMALLINT",
			types.MediumInt:  "INTEGER",
			types.Int32:      "INTEGER",
			types.Int64:      "BIGINT",
			types.Float32:    "FLOAT",
			types.Float64:    "DOUBLE",
			types.Boolean:    "BOOLEAN",
			types.TimeOfDay:  "TIME",
			types.Timestamp:  "TIMESTAMP",
			types.TinyText:   "VARCHAR",
			types.Text:       "VARCHAR",
			types.MediumText: "VARCHAR",
			types.LongText:   "VARCHAR",
		},
		Prelude: func(t *ezdb.Table) []string {
			return []string{fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", sequence(t.Name))}
		},
		Identity: func(t *ezdb.Table) string {
			return fmt.Sprintf("BIGINT PRIMARY KEY DEFAULT nextval('%s')", sequence(t.Name))
		},
		Cleanup: func(table string) []string {
			return []string{fmt.Sprintf("DROP SEQUENCE IF EXISTS %s", sequence(table))}
		},
		Introspect: func(_, table string) string {
			return fmt.Sprintf("SELECT column_name FROM information_schema.columns WHERE table_name = '%s' ORDER BY ordinal_position", table)
		},
		FileBased: true,
		DSN:       DSN,
	}
}

// DSN returns the database path followed by its configuration options.
func DSN(t ezdb.Target) (string, error) {
	if t.Path == "" {
		return "", errors.New("duckdb: target path is required")
	}
	if len(t.Options) == 0 {
		return t.Path, nil
	}
	keys := make([]string, 0, len(t.Options))
	for k := range t.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		q.Set(k, t.Options[k])
	}
	return t.Path + "?" + q.Encode(), nil
}
