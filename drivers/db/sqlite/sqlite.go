// Package sqlite registers the SQLite dialect, backed by mattn/go-sqlite3.
package sqlite

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Name is the dialect name used in targets and configuration.
const Name = "sqlite"

func init() {
	ezdb.Register(Dialect())
}

// Dialect returns the SQLite dialect descriptor.
func Dialect() *ezdb.Dialect {
	format := codec.Standard
	format.True, format.False = "1", "0"
	return &ezdb.Dialect{
		Name:   Name,
		Driver: "sqlite3",
		Keywords: sqlbuilder.Keywords{
			Limit:        sqlbuilder.LimitClause,
			IfNotExists:  true,
			IfExists:     true,
			InsertIgnore: "INSERT OR IGNORE INTO",
		},
		Format: format,
		TypeNames: map[types.Kind]string{
			types.TinyInt:    "TINYINT",
			types.SmallInt:   "SMALLINT",
			types.MediumInt:  "MEDIUMINT",
			types.Int32:      "INTEGER",
			types.Int64:      "BIGINT",
			types.Float32:    "FLOAT",
			types.Float64:    "DOUBLE",
			types.Boolean:    "BOOLEAN",
			types.TimeOfDay:  "TIME",
			types.Timestamp:  "TIMESTAMP",
			types.TinyText:   "TEXT",
			types.Text:       "TEXT",
			types.MediumText: "TEXT",
			types.LongText:   "TEXT",
		},
		Identity: func(*ezdb.Table) string {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		},
		Triggers:   triggers{},
		Introspect: introspect,
		FileBased:  true,
		DSN:        DSN,
	}
}

// DSN builds a go-sqlite3 connection string from the target path and options.
func DSN(t ezdb.Target) (string, error) {
	if t.Path == "" {
		return "", errors.New("sqlite: target path is required")
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
	sep := "?"
	if strings.Contains(t.Path, "?") {
		sep = "&"
	}
	path := t.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + q.Encode(), nil
}

type triggers struct{}

func (triggers) ListTriggers(_, table string) string {
	return fmt.Sprintf("SELECT name FROM sqlite_master WHERE type = 'trigger' AND tbl_name = '%s'", table)
}

func (triggers) CreateTriggers(table string) []string {
	counter := ezdb.CounterTable(table)
	return []string{
		fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s AFTER INSERT ON %s BEGIN UPDATE %s SET rowCount = rowCount + 1 WHERE id = 1; END",
			ezdb.AddTrigger(table), table, counter),
		fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s AFTER DELETE ON %s BEGIN UPDATE %s SET rowCount = rowCount - 1 WHERE id = 1; END",
			ezdb.SubTrigger(table), table, counter),
	}
}

// DropTriggers returns nothing: SQLite drops triggers together with their table.
func (triggers) DropTriggers(string) []string { return nil }
