// Package postgres registers the PostgreSQL dialects. "postgres" connects
// through lib/pq, "pgx" through the jackc/pgx database/sql driver; both
// render identical SQL.
package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// Dialect names used in targets and configuration.
const (
	Name    = "postgres"
	NamePgx = "pgx"
)

const defaultPort = 5432

func init() {
	ezdb.Register(Dialect())
	ezdb.Register(PgxDialect())
}

// Dialect returns the PostgreSQL descriptor using lib/pq.
func Dialect() *ezdb.Dialect {
	return newDialect(Name, "postgres")
}

// PgxDialect returns the PostgreSQL descriptor using pgx.
func PgxDialect() *ezdb.Dialect {
	return newDialect(NamePgx, "pgx")
}

func newDialect(name, driver string) *ezdb.Dialect {
	return &ezdb.Dialect{
		Name:   name,
		Driver: driver,
		Keywords: sqlbuilder.Keywords{
			Limit:              sqlbuilder.LimitClause,
			IfNotExists:        true,
			IfExists:           true,
			InsertIgnoreSuffix: "ON CONFLICT (id) DO NOTHING",
		},
		Format: codec.Standard,
		// TEXT is capped at 1 GB, so the longtext tier is not representable.
		TypeNames: map[types.Kind]string{
			types.TinyInt:    "SMALLINT",
			types.SmallInt:   "SMALLINT",
			types.MediumInt:  "INTEGER",
			types.Int32:      "INTEGER",
			types.Int64:      "BIGINT",
			types.Float32:    "REAL",
			types.Float64:    "DOUBLE PRECISION",
			types.Boolean:    "BOOLEAN",
			types.TimeOfDay:  "TIME(3)",
			types.Timestamp:  "TIMESTAMP(3)",
			types.TinyText:   "VARCHAR(255)",
			types.Text:       "TEXT",
			types.MediumText: "TEXT",
		},
		Identity: func(t *ezdb.Table) string {
			if t.Identity().Kind == types.Int64 {
				return "BIGSERIAL PRIMARY KEY"
			}
			return "SERIAL PRIMARY KEY"
		},
		Triggers:   triggers{},
		Introspect: introspect,
		DSN:        DSN,
	}
}

// DSN builds a key=value connection string accepted by both drivers.
func DSN(t ezdb.Target) (string, error) {
	if t.Database == "" {
		return "", errors.New("postgres: target database is required")
	}
	host := t.Host
	if host == "" {
		host = "localhost"
	}
	port := t.Port
	if port == 0 {
		port = defaultPort
	}
	sslmode := "disable"
	if mode, ok := t.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", t.Database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if t.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", t.User))
	}
	if t.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", t.Password))
	}
	keys := make([]string, 0, len(t.Options))
	for k := range t.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, t.Options[k]))
	}
	return strings.Join(parts, " "), nil
}

func triggerFunc(trigger string) string { return trigger + "_fn" }

type triggers struct{}

// ListTriggers matches on lower case names since unquoted identifiers are
// folded by the server.
func (triggers) ListTriggers(_, table string) string {
	return fmt.Sprintf("SELECT trigger_name FROM information_schema.triggers WHERE event_object_schema = current_schema() AND event_object_table = '%s'",
		strings.ToLower(table))
}

// CreateTriggers pairs each trigger with its PL/pgSQL function in a single
// statement so the install stays one statement per trigger.
func (triggers) CreateTriggers(table string) []string {
	counter := ezdb.CounterTable(table)
	create := func(trigger, event, delta string) string {
		fn := triggerFunc(trigger)
		return fmt.Sprintf("CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$ BEGIN UPDATE %s SET rowCount = rowCount %s 1 WHERE id = 1; RETURN NULL; END; $$ LANGUAGE plpgsql; "+
			"CREATE TRIGGER %s AFTER %s ON %s FOR EACH ROW EXECUTE FUNCTION %s()",
			fn, counter, delta, trigger, event, table, fn)
	}
	return []string{
		create(ezdb.AddTrigger(table), "INSERT", "+"),
		create(ezdb.SubTrigger(table), "DELETE", "-"),
	}
}

// DropTriggers removes the trigger functions left behind by DROP TABLE.
func (triggers) DropTriggers(table string) []string {
	return []string{
		fmt.Sprintf("DROP FUNCTION IF EXISTS %s()", triggerFunc(ezdb.AddTrigger(table))),
		fmt.Sprintf("DROP FUNCTION IF EXISTS %s()", triggerFunc(ezdb.SubTrigger(table))),
	}
}
