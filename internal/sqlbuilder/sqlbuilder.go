// Package sqlbuilder assembles SQL statements from dialect keyword tables.
//
// A Builder accumulates tokens and joins them with single spaces. Row-limit
// clauses are dialect aware: Top only renders for TOP dialects and Limit only
// for LIMIT dialects, so the same call sequence produces valid text for both.
package sqlbuilder

import (
	"strconv"
	"strings"
)

// LimitStyle selects how a dialect restricts the number of rows.
type LimitStyle int

const (
	// LimitClause appends LIMIT n after ORDER BY.
	LimitClause LimitStyle = iota
	// TopClause places TOP n directly after SELECT.
	TopClause
)

// Keywords holds the dialect-specific spellings a Builder needs.
type Keywords struct {
	Limit       LimitStyle
	IfNotExists bool
	IfExists    bool
	// InsertIgnore replaces INSERT INTO for statements that must not fail on
	// duplicate keys, e.g. "INSERT OR IGNORE INTO".
	InsertIgnore string
	// InsertIgnoreSuffix is appended after VALUES for engines that express
	// the same through a conflict clause.
	InsertIgnoreSuffix string
}

// Builder is a fluent SQL token accumulator. It is not safe for concurrent use.
type Builder struct {
	kw     Keywords
	tokens []string
}

// New creates a Builder for the given keyword table.
func New(kw Keywords) *Builder {
	return &Builder{kw: kw}
}

// Keywords returns the keyword table the builder renders with.
func (b *Builder) Keywords() Keywords { return b.kw }

func (b *Builder) add(tokens ...string) *Builder {
	for _, t := range tokens {
		if t != "" {
			b.tokens = append(b.tokens, t)
		}
	}
	return b
}

// Raw appends s verbatim.
func (b *Builder) Raw(s string) *Builder { return b.add(s) }

func (b *Builder) Select() *Builder { return b.add("SELECT") }

// All appends the * projection.
func (b *Builder) All() *Builder { return b.add("*") }

// Columns appends a comma separated column list.
func (b *Builder) Columns(names ...string) *Builder {
	return b.add(strings.Join(names, ", "))
}

func (b *Builder) From(table string) *Builder { return b.add("FROM", table) }

// FromSub appends FROM (inner) AS alias.
func (b *Builder) FromSub(inner *Builder, alias string) *Builder {
	return b.add("FROM", "("+inner.String()+")", "AS", alias)
}

func (b *Builder) Where(column string) *Builder { return b.add("WHERE", column) }

func (b *Builder) And(column string) *Builder { return b.add("AND", column) }

func (b *Builder) Equal(value string) *Builder { return b.add("=", value) }

func (b *Builder) GreaterEqual(value string) *Builder { return b.add(">=", value) }

func (b *Builder) Lesser(value string) *Builder { return b.add("<", value) }

// In appends IN (inner).
func (b *Builder) In(inner *Builder) *Builder {
	return b.add("IN", "("+inner.String()+")")
}

func (b *Builder) OrderBy(column string) *Builder { return b.add("ORDER BY", column) }

func (b *Builder) Asc() *Builder { return b.add("ASC") }

func (b *Builder) Desc() *Builder { return b.add("DESC") }

// Direction appends ASC or DESC.
func (b *Builder) Direction(ascending bool) *Builder {
	if ascending {
		return b.Asc()
	}
	return b.Desc()
}

// Top appends TOP n on TOP dialects and nothing otherwise.
func (b *Builder) Top(n int64) *Builder {
	if b.kw.Limit != TopClause {
		return b
	}
	return b.add("TOP", strconv.FormatInt(n, 10))
}

// Limit appends LIMIT n on LIMIT dialects and nothing otherwise.
func (b *Builder) Limit(n int64) *Builder {
	if b.kw.Limit != LimitClause {
		return b
	}
	return b.add("LIMIT", strconv.FormatInt(n, 10))
}

// CreateTable appends CREATE TABLE, with IF NOT EXISTS when supported.
func (b *Builder) CreateTable(name string) *Builder {
	b.add("CREATE TABLE")
	if b.kw.IfNotExists {
		b.add("IF NOT EXISTS")
	}
	return b.add(name)
}

// Definitions appends a parenthesised, comma separated list.
func (b *Builder) Definitions(defs ...string) *Builder {
	return b.add("(" + strings.Join(defs, ", ") + ")")
}

// DropTable appends DROP TABLE, with IF EXISTS when supported.
func (b *Builder) DropTable(name string) *Builder {
	b.add("DROP TABLE")
	if b.kw.IfExists {
		b.add("IF EXISTS")
	}
	return b.add(name)
}

// InsertInto appends INSERT INTO table (columns).
func (b *Builder) InsertInto(table string, columns ...string) *Builder {
	return b.add("INSERT INTO", table, "("+strings.Join(columns, ", ")+")")
}

// InsertIgnore appends the dialect's duplicate-tolerant insert prefix.
// The matching suffix is added by IgnoreSuffix after the values.
func (b *Builder) InsertIgnore(table string, columns ...string) *Builder {
	prefix := b.kw.InsertIgnore
	if prefix == "" {
		prefix = "INSERT INTO"
	}
	return b.add(prefix, table, "("+strings.Join(columns, ", ")+")")
}

// IgnoreSuffix appends the dialect's conflict clause, if any.
func (b *Builder) IgnoreSuffix() *Builder { return b.add(b.kw.InsertIgnoreSuffix) }

// Values appends VALUES (v1, v2, ...).
func (b *Builder) Values(values ...string) *Builder {
	return b.add("VALUES", "("+strings.Join(values, ", ")+")")
}

func (b *Builder) Update(table string) *Builder { return b.add("UPDATE", table) }

// Set appends SET followed by the given assignments.
func (b *Builder) Set(assignments ...string) *Builder {
	return b.add("SET", strings.Join(assignments, ", "))
}

func (b *Builder) DeleteFrom(table string) *Builder { return b.add("DELETE FROM", table) }

// Assign formats a single column = value assignment.
func Assign(column, value string) string { return column + " = " + value }

// String renders the accumulated statement without resetting the builder.
func (b *Builder) String() string {
	return strings.Join(b.tokens, " ")
}

// Flush renders the accumulated statement and resets the builder.
func (b *Builder) Flush() string {
	s := b.String()
	b.tokens = b.tokens[:0]
	return s
}

// Len reports the number of accumulated tokens.
func (b *Builder) Len() int { return len(b.tokens) }
