package ezdb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ezdb/ezdb/internal/codec"
	"github.com/ezdb/ezdb/internal/sqlbuilder"
	"github.com/ezdb/ezdb/types"
)

// TriggerDialect renders the artifacts that keep a table's row counter in
// sync. A Dialect without one has no trigger support and serves row counts
// through an aggregate query.
type TriggerDialect interface {
	// ListTriggers returns a query whose rows carry, in their first column,
	// the names of the triggers attached to table.
	ListTriggers(database, table string) string
	// CreateTriggers returns the statements installing the insert trigger
	// followed by the delete trigger.
	CreateTriggers(table string) []string
	// DropTriggers returns statements removing trigger artifacts that are
	// not dropped together with the table.
	DropTriggers(table string) []string
}

// Dialect describes the capabilities and spellings of one database engine.
// The shared statement algorithms are parameterized by it.
type Dialect struct {
	Name     string
	Driver   string
	Keywords sqlbuilder.Keywords
	Format   codec.Format
	// TypeNames maps each supported kind to its column type. A kind missing
	// from the map is not supported by the dialect.
	TypeNames map[types.Kind]string
	// Identity renders the definition of the identity column after its name.
	Identity func(t *Table) string
	// Prelude returns statements that must run before the table is created.
	Prelude func(t *Table) []string
	// Cleanup returns statements that must run after the table is dropped.
	Cleanup  func(table string) []string
	Triggers TriggerDialect
	// Introspect returns a query listing the physical column names of table
	// in ordinal order. Nil when the engine offers no catalog to query.
	Introspect func(database, table string) string
	// DeleteOrderLimit is set for engines accepting DELETE ... ORDER BY ... LIMIT.
	DeleteOrderLimit bool
	// FileBased dialects cannot be retargeted once opened.
	FileBased bool
	// DSN builds the driver connection string for a target.
	DSN func(t Target) (string, error)
	// Bootstrap, when set, runs before the pool is opened.
	Bootstrap func(ctx context.Context, t Target) error
}

// SupportsTriggers reports whether the dialect maintains row counters.
func (d *Dialect) SupportsTriggers() bool { return d.Triggers != nil }

// TypeName returns the column type for kind k.
func (d *Dialect) TypeName(k types.Kind) (string, error) {
	name, ok := d.TypeNames[k]
	if !ok {
		return "", &NotSupportedError{Dialect: d.Name, Capability: fmt.Sprintf("column type %s", k)}
	}
	return name, nil
}

// Builder returns a statement builder using the dialect keywords.
func (d *Dialect) Builder() *sqlbuilder.Builder {
	return sqlbuilder.New(d.Keywords)
}

// Literal renders v as a literal of kind k.
func (d *Dialect) Literal(v any, k types.Kind) (string, error) {
	return codec.Encode(v, k, d.Format)
}

func (d *Dialect) notSupported(capability string) error {
	return &NotSupportedError{Dialect: d.Name, Capability: capability}
}

var (
	dialectMu sync.RWMutex
	dialects  = make(map[string]*Dialect)
)

// Register adds a dialect to the registry. Driver packages call it from
// their init functions.
func Register(d *Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[d.Name] = d
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (*Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[name]
	dialectMu.RUnlock()
	if !ok {
		return nil, &UnknownDialectError{Name: name, Available: Dialects()}
	}
	return d, nil
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
