// Package access registers the Microsoft Access dialect over ODBC, backed by
// alexbrainman/odbc. Access has no triggers, no 64-bit integers and no
// LIMIT clause.
package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/alexbrainman/odbc" // registers the "odbc" driver

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// Name is the dialect name used in targets and configuration.
const Name = "access"

const odbcDriver = "{Microsoft Access Driver (*.mdb, *.accdb)}"

func init() {
	ezdb.Register(Dialect())
}

// Dialect returns the Access dialect descriptor.
func Dialect() *ezdb.Dialect {
	return &ezdb.Dialect{
		Name:   Name,
		Driver: "odbc",
		Keywords: sqlbuilder.Keywords{
			Limit: sqlbuilder.TopClause,
		},
		Format: codec.Format{
			TimestampLayout: "2006-01-02 15:04:05",
			ClockLayout:     "15:04:05",
			DateOpen:        "#",
			DateClose:       "#",
			True:            "TRUE",
			False:           "FALSE",
		},
		TypeNames: map[types.Kind]string{
			types.TinyInt:    "SMALLINT",
			types.SmallInt:   "SMALLINT",
			types.MediumInt:  "INTEGER",
			types.Int32:      "INTEGER",
			types.Float32:    "REAL",
			types.Float64:    "FLOAT",
			types.Boolean:    "BIT",
			types.TimeOfDay:  "DATETIME",
			types.Timestamp:  "DATETIME",
			types.TinyText:   "TEXT(255)",
			types.Text:       "MEMO",
			types.MediumText: "MEMO",
		},
		Identity: func(*ezdb.Table) string {
			return "COUNTER PRIMARY KEY"
		},
		FileBased: true,
		DSN:       DSN,
	}
}

// DSN builds an ODBC connection string for the database file in t.Path.
// Options are appended as extra attributes.
func DSN(t ezdb.Target) (string, error) {
	if t.Path == "" {
		return "", errors.New("access: target path is required")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Driver=%s;Dbq=%s;", odbcDriver, t.Path)
	if t.User != "" {
		fmt.Fprintf(&b, "Uid=%s;", t.User)
	}
	if t.Password != "" {
		fmt.Fprintf(&b, "Pwd=%s;", t.Password)
	}
	keys := make([]string, 0, len(t.Options))
	for k := range t.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, t.Options[k])
	}
	return b.String(), nil
}
