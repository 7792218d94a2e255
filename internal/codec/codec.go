// Package codec renders typed values as SQL literals and converts driver
// values back into typed values.
package codec

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ezdb/ezdb/types"
)

// Format holds the literal rendering rules of a dialect.
type Format struct {
	TimestampLayout  string
	ClockLayout      string
	DateOpen         string
	DateClose        string
	True             string
	False            string
	BackslashEscapes bool
}

// Standard is the ANSI-style format shared by most engines.
var Standard = Format{
	TimestampLayout: "2006-01-02 15:04:05.000",
	ClockLayout:     "15:04:05.000",
	DateOpen:        "'",
	DateClose:       "'",
	True:            "TRUE",
	False:           "FALSE",
}

// parse layouts tried in order for textual timestamps coming back from drivers.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

func mismatch(k types.Kind, v any) error {
	got := "NULL"
	if v != nil {
		got = reflect.TypeOf(v).String()
	}
	return &types.TypeMismatchError{Kind: k, Got: got}
}

// Check verifies that v has the runtime type of kind k.
func Check(v any, k types.Kind) error {
	want := k.GoType()
	if want == nil {
		return &types.FormatError{Kind: k, Reason: "unknown kind"}
	}
	if v == nil || reflect.TypeOf(v) != want {
		return mismatch(k, v)
	}
	return nil
}

// Encode renders v as a literal of kind k. Timestamps are converted to UTC
// before formatting.
func Encode(v any, k types.Kind, f Format) (string, error) {
	if err := Check(v, k); err != nil {
		return "", err
	}
	switch k {
	case types.TinyInt:
		return strconv.FormatInt(int64(v.(int8)), 10), nil
	case types.SmallInt:
		return strconv.FormatInt(int64(v.(int16)), 10), nil
	case types.MediumInt:
		return v.(types.Int24).String(), nil
	case types.Int32:
		return strconv.FormatInt(int64(v.(int32)), 10), nil
	case types.Int64:
		return strconv.FormatInt(v.(int64), 10), nil
	case types.Float32:
		return formatFloat(float64(v.(float32)), 32, k)
	case types.Float64:
		return formatFloat(v.(float64), 64, k)
	case types.Boolean:
		if v.(bool) {
			return f.True, nil
		}
		return f.False, nil
	case types.TimeOfDay:
		return f.DateOpen + v.(types.Clock).Format(f.ClockLayout) + f.DateClose, nil
	case types.Timestamp:
		// Stored as UTC wall clock; precision beyond the layout is truncated.
		return f.DateOpen + v.(time.Time).UTC().Format(f.TimestampLayout) + f.DateClose, nil
	}
	s, _ := types.TextOf(v)
	return Quote(s, f), nil
}

func formatFloat(x float64, bits int, k types.Kind) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", &types.FormatError{Kind: k, Value: fmt.Sprint(x), Reason: "not a finite number"}
	}
	return strconv.FormatFloat(x, 'f', -1, bits), nil
}

// Quote wraps s in single quotes, escaping embedded quotes and, for engines
// that treat it as an escape character, the backslash.
func Quote(s string, f Format) string {
	if f.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Decode converts a value returned by a database driver into the runtime
// type of kind k. Timestamps are returned in UTC. Values that cannot be represented yield a
// *types.TypeMismatchError.
func Decode(raw any, k types.Kind, f Format) (any, error) {
	if raw == nil {
		return nil, mismatch(k, raw)
	}
	switch {
	case k.IsInteger():
		n, ok := asInt(raw)
		if !ok {
			return nil, mismatch(k, raw)
		}
		lo, hi := k.IntRange()
		if n < lo || n > hi {
			return nil, &types.TypeMismatchError{Kind: k, Got: fmt.Sprintf("out of range value %d", n)}
		}
		return fromInt(n, k)
	case k == types.Float32 || k == types.Float64:
		x, ok := asFloat(raw)
		if !ok {
			return nil, mismatch(k, raw)
		}
		if k == types.Float32 {
			return float32(x), nil
		}
		return x, nil
	case k == types.Boolean:
		b, ok := asBool(raw, f)
		if !ok {
			return nil, mismatch(k, raw)
		}
		return b, nil
	case k == types.Timestamp:
		ts, ok := asTime(raw)
		if !ok {
			return nil, mismatch(k, raw)
		}
		return ts, nil
	case k == types.TimeOfDay:
		return asClock(raw, k)
	case k.IsText():
		s, ok := asString(raw)
		if !ok {
			return nil, mismatch(k, raw)
		}
		v, err := types.NewTextOf(k, s)
		if err != nil {
			return nil, &types.TypeMismatchError{Kind: k, Got: err.Error()}
		}
		return v, nil
	}
	return nil, &types.FormatError{Kind: k, Reason: "unknown kind"}
}

func fromInt(n int64, k types.Kind) (any, error) {
	switch k {
	case types.TinyInt:
		return int8(n), nil
	case types.SmallInt:
		return int16(n), nil
	case types.MediumInt:
		return types.NewInt24(int32(n))
	case types.Int32:
		return int32(n), nil
	}
	return n, nil
}

func asString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	if s, ok := asString(raw); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if n, ok := asInt(raw); ok {
		return float64(n), true
	}
	if s, ok := asString(raw); ok {
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return x, err == nil
	}
	return 0, false
}

func asBool(raw any, f Format) (bool, bool) {
	if b, ok := raw.(bool); ok {
		return b, true
	}
	if n, ok := asInt(raw); ok {
		switch n {
		case 0:
			return false, true
		case 1, -1:
			return true, true
		}
		return false, false
	}
	if s, ok := asString(raw); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "TRUE", "T", strings.ToUpper(f.True):
			return true, true
		case "FALSE", "F", strings.ToUpper(f.False):
			return false, true
		}
	}
	return false, false
}

func asTime(raw any) (time.Time, bool) {
	if t, ok := raw.(time.Time); ok {
		return t.UTC(), true
	}
	s, ok := asString(raw)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asClock(raw any, k types.Kind) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return types.ClockOf(v), nil
	case time.Duration:
		c, err := types.ClockFromDuration(v)
		if err != nil {
			return nil, &types.TypeMismatchError{Kind: k, Got: err.Error()}
		}
		return c, nil
	}
	s, ok := asString(raw)
	if !ok {
		return nil, mismatch(k, raw)
	}
	c, err := types.ParseClock(s)
	if err != nil {
		return nil, &types.TypeMismatchError{Kind: k, Got: fmt.Sprintf("unparsable time %q", s)}
	}
	return c, nil
}
