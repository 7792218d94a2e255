// Package mysql registers the MySQL dialect, backed by go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// Name is the dialect name used in targets and configuration.
const Name = "mysql"

const defaultPort = 3306

func init() {
	ezdb.Register(Dialect())
}

// Dialect returns the MySQL dialect descriptor.
func Dialect() *ezdb.Dialect {
	format := codec.Standard
	format.BackslashEscapes = true
	typeNames := map[types.Kind]string{
		types.TinyInt:    "TINYINT",
		types.SmallInt:   "SMALLINT",
		types.MediumInt:  "MEDIUMINT",
		types.Int32:      "INT",
		types.Int64:      "BIGINT",
		types.Float32:    "FLOAT",
		types.Float64:    "DOUBLE",
		types.Boolean:    "BOOLEAN",
		types.TimeOfDay:  "TIME(3)",
		types.Timestamp:  "DATETIME(3)",
		types.TinyText:   "TINYTEXT",
		types.Text:       "TEXT",
		types.MediumText: "MEDIUMTEXT",
		types.LongText:   "LONGTEXT",
	}
	return &ezdb.Dialect{
		Name:   Name,
		Driver: "mysql",
		Keywords: sqlbuilder.Keywords{
			Limit:        sqlbuilder.LimitClause,
			IfNotExists:  true,
			IfExists:     true,
			InsertIgnore: "INSERT IGNORE INTO",
		},
		Format:    format,
		TypeNames: typeNames,
		Identity: func(t *ezdb.Table) string {
			typ, ok := typeNames[t.Identity().Kind]
			if !ok {
				typ = "BIGINT"
			}
			return typ + " NOT NULL AUTO_INCREMENT PRIMARY KEY"
		},
		Triggers:         triggers{},
		Introspect:       introspect,
		DeleteOrderLimit: true,
		DSN:              DSN,
		Bootstrap:        createDatabase,
	}
}

func config(t ezdb.Target) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = t.User
	cfg.Passwd = t.Password
	cfg.Net = "tcp"
	host := t.Host
	if host == "" {
		host = "localhost"
	}
	port := t.Port
	if port == 0 {
		port = defaultPort
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = t.Database
	cfg.ParseTime = true
	if len(t.Options) > 0 {
		cfg.Params = make(map[string]string, len(t.Options))
		for k, v := range t.Options {
			cfg.Params[k] = v
		}
	}
	return cfg
}

// DSN builds a go-sql-driver/mysql connection string.
func DSN(t ezdb.Target) (string, error) {
	if t.Database == "" {
		return "", errors.New("mysql: target database is required")
	}
	return config(t).FormatDSN(), nil
}

// createDatabase connects without a default schema and creates the target
// database if it does not exist.
func createDatabase(ctx context.Context, t ezdb.Target) error {
	if !ezdb.ValidIdentifier(t.Database) {
		return fmt.Errorf("%w: database name %q", ezdb.ErrInvalidName, t.Database)
	}
	cfg := config(t)
	cfg.DBName = ""
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return fmt.Errorf("mysql: open server connection: %w", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+t.Database); err != nil {
		return fmt.Errorf("mysql: create database %s: %w", t.Database, err)
	}
	return nil
}

type triggers struct{}

// ListTriggers reads the current schema when database is empty, as for
// engines wrapping an existing handle.
func (triggers) ListTriggers(database, table string) string {
	if database == "" {
		return fmt.Sprintf("SHOW TRIGGERS WHERE `Table` = '%s'", table)
	}
	return fmt.Sprintf("SHOW TRIGGERS FROM %s WHERE `Table` = '%s'", database, table)
}

func (triggers) CreateTriggers(table string) []string {
	counter := ezdb.CounterTable(table)
	return []string{
		fmt.Sprintf("CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH ROW UPDATE %s SET rowCount = rowCount + 1 WHERE id = 1",
			ezdb.AddTrigger(table), table, counter),
		fmt.Sprintf("CREATE TRIGGER %s AFTER DELETE ON %s FOR EACH ROW UPDATE %s SET rowCount = rowCount - 1 WHERE id = 1",
			ezdb.SubTrigger(table), table, counter),
	}
}

// DropTriggers returns nothing: MySQL drops triggers together with their table.
func (triggers) DropTriggers(string) []string { return nil }
