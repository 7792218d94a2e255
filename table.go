package ezdb

import (
	"fmt"
	"regexp"

	"github.com/ezdb/ezdb/types"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used unquoted as a table or
// column name.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Column is one named, typed column of a table.
type Column struct {
	Name string     `koanf:"name"`
	Kind types.Kind `koanf:"type"`
}

// Table describes a logical table. Columns are kept in physical order and the
// first column is the auto-incrementing identity.
type Table struct {
	Name    string   `koanf:"name"`
	Columns []Column `koanf:"columns"`
	// MaxRows is the retention threshold; zero or less disables retention.
	MaxRows int64 `koanf:"max_rows"`
}

// Row holds one value per column, positionally aligned with Table.Columns.
type Row []any

// OutputColumn tells the decoder which kind to expect at a result position.
type OutputColumn struct {
	Position int
	Kind     types.Kind
}

// NewTable builds and validates a table descriptor.
func NewTable(name string, maxRows int64, columns ...Column) (*Table, error) {
	t := &Table{Name: name, Columns: columns, MaxRows: maxRows}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks identifiers, column uniqueness and the identity column.
func (t *Table) Validate() error {
	if !ValidIdentifier(t.Name) {
		return fmt.Errorf("%w: table name %q", ErrInvalidName, t.Name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrInvalidName, t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if !ValidIdentifier(c.Name) {
			return fmt.Errorf("%w: column name %q in table %s", ErrInvalidName, c.Name, t.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column %q in table %s", ErrInvalidName, c.Name, t.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Kind.Valid() {
			return &FormatError{Kind: c.Kind, Value: c.Name, Reason: "unknown column type"}
		}
	}
	if !t.Columns[0].Kind.IsInteger() {
		return &TypeMismatchError{Kind: types.Int64, Column: t.Columns[0].Name, Got: t.Columns[0].Kind.String()}
	}
	return nil
}

// Identity returns the identity column.
func (t *Table) Identity() Column { return t.Columns[0] }

// Column looks a column up by name.
func (t *Table) Column(name string) (int, Column, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, c, true
		}
	}
	return -1, Column{}, false
}

// OutputColumns returns the decode list for a SELECT * on the table.
func (t *Table) OutputColumns() []OutputColumn {
	out := make([]OutputColumn, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = OutputColumn{Position: i, Kind: c.Kind}
	}
	return out
}

// CounterTable names the auxiliary row counter table of a table.
func CounterTable(table string) string { return table + "_count" }

// AddTrigger names the insert trigger of a table.
func AddTrigger(table string) string { return table + "_trigger_add" }

// SubTrigger names the delete trigger of a table.
func SubTrigger(table string) string { return table + "_trigger_sub" }
