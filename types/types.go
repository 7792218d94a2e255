// Package types defines the closed set of column kinds a table may declare
// and the validated Go values that carry them.
package types

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind identifies the logical type of a column.
type Kind uint8

const (
	Invalid Kind = iota
	TinyInt
	SmallInt
	MediumInt
	Int32
	Int64
	Float32
	Float64
	Boolean
	TimeOfDay
	Timestamp
	TinyText
	Text
	MediumText
	LongText
)

var kindNames = map[Kind]string{
	TinyInt:    "tinyint",
	SmallInt:   "smallint",
	MediumInt:  "mediumint",
	Int32:      "int32",
	Int64:      "int64",
	Float32:    "float32",
	Float64:    "float64",
	Boolean:    "boolean",
	TimeOfDay:  "time",
	Timestamp:  "timestamp",
	TinyText:   "tinytext",
	Text:       "text",
	MediumText: "mediumtext",
	LongText:   "longtext",
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := TinyInt; k <= LongText; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind by name, case-insensitively. "int" and "integer"
// are accepted as aliases of int32, "bigint" of int64 and "bool" of boolean.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "int", "integer":
		return Int32, nil
	case "bigint":
		return Int64, nil
	case "bool":
		return Boolean, nil
	case "datetime":
		return Timestamp, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("ezdb: unknown column type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("ezdb: invalid column type %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so kinds can be loaded
// from configuration files.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

var goTypes = map[Kind]reflect.Type{
	TinyInt:    reflect.TypeOf(int8(0)),
	SmallInt:   reflect.TypeOf(int16(0)),
	MediumInt:  reflect.TypeOf(Int24{}),
	Int32:      reflect.TypeOf(int32(0)),
	Int64:      reflect.TypeOf(int64(0)),
	Float32:    reflect.TypeOf(float32(0)),
	Float64:    reflect.TypeOf(float64(0)),
	Boolean:    reflect.TypeOf(false),
	TimeOfDay:  reflect.TypeOf(Clock{}),
	Timestamp:  reflect.TypeOf(time.Time{}),
	TinyText:   reflect.TypeOf(TinyString{}),
	Text:       reflect.TypeOf(String{}),
	MediumText: reflect.TypeOf(MediumString{}),
	LongText:   reflect.TypeOf(LongString{}),
}

// GoType returns the runtime type a value of kind k must have.
func (k Kind) GoType() reflect.Type {
	return goTypes[k]
}

// IsInteger reports whether k is one of the integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case TinyInt, SmallInt, MediumInt, Int32, Int64:
		return true
	}
	return false
}

// IsText reports whether k is one of the bounded text kinds.
func (k Kind) IsText() bool {
	return k >= TinyText && k <= LongText
}

// IntRange returns the inclusive bounds of an integer kind.
func (k Kind) IntRange() (lo, hi int64) {
	switch k {
	case TinyInt:
		return -1 << 7, 1<<7 - 1
	case SmallInt:
		return -1 << 15, 1<<15 - 1
	case MediumInt:
		return MinInt24 + 1, MaxInt24
	case Int32:
		return -1 << 31, 1<<31 - 1
	}
	return -1 << 63, 1<<63 - 1
}

// TypeMismatchError reports a value whose runtime type does not match the
// declared kind of its column, either before encoding or after decoding a
// driver value.
type TypeMismatchError struct {
	Kind   Kind
	Column string
	Got    string
}

func (e *TypeMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("ezdb: column %q expects %s, got %s", e.Column, e.Kind, e.Got)
	}
	return fmt.Sprintf("ezdb: expected %s, got %s", e.Kind, e.Got)
}

// FormatError reports a value that cannot be represented by its kind.
type FormatError struct {
	Kind   Kind
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("ezdb: invalid %s value: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("ezdb: invalid %s value %s: %s", e.Kind, e.Value, e.Reason)
}
