package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bounds of the 24-bit integer kind. MinInt24 itself is rejected.
const (
	MinInt24 = -8388608
	MaxInt24 = 8388607
)

// Byte limits of the text tiers.
const (
	MaxTinyText   uint64 = 255
	MaxText       uint64 = 65535
	MaxMediumText uint64 = 16777215
	MaxLongText   uint64 = 4294967295
)

// Int24 holds a value of the mediumint kind.
type Int24 struct {
	v int32
}

// NewInt24 validates v against the mediumint range.
func NewInt24(v int32) (Int24, error) {
	if v <= MinInt24 || v > MaxInt24 {
		return Int24{}, &FormatError{
			Kind:   MediumInt,
			Value:  strconv.FormatInt(int64(v), 10),
			Reason: fmt.Sprintf("out of range (%d, %d]", MinInt24, MaxInt24),
		}
	}
	return Int24{v: v}, nil
}

// Int32 returns the underlying integer.
func (m Int24) Int32() int32 { return m.v }

func (m Int24) String() string { return strconv.FormatInt(int64(m.v), 10) }

// MaxBytes returns the byte limit of a text kind, or 0 for other kinds.
func (k Kind) MaxBytes() uint64 {
	switch k {
	case TinyText:
		return MaxTinyText
	case Text:
		return MaxText
	case MediumText:
		return MaxMediumText
	case LongText:
		return MaxLongText
	}
	return 0
}

// CheckLength reports whether a text of n bytes fits kind k.
func CheckLength(k Kind, n uint64) error {
	limit := k.MaxBytes()
	if limit == 0 {
		return &FormatError{Kind: k, Reason: "not a text type"}
	}
	if n > limit {
		return &FormatError{
			Kind:   k,
			Reason: fmt.Sprintf("%d bytes exceeds limit of %d", n, limit),
		}
	}
	return nil
}

// TinyString holds a value of the tinytext kind.
type TinyString struct{ s string }

// String holds a value of the text kind.
type String struct{ s string }

// MediumString holds a value of the mediumtext kind.
type MediumString struct{ s string }

// LongString holds a value of the longtext kind.
type LongString struct{ s string }

func NewTinyText(s string) (TinyString, error) {
	if err := CheckLength(TinyText, uint64(len(s))); err != nil {
		return TinyString{}, err
	}
	return TinyString{s}, nil
}

func NewText(s string) (String, error) {
	if err := CheckLength(Text, uint64(len(s))); err != nil {
		return String{}, err
	}
	return String{s}, nil
}

func NewMediumText(s string) (MediumString, error) {
	if err := CheckLength(MediumText, uint64(len(s))); err != nil {
		return MediumString{}, err
	}
	return MediumString{s}, nil
}

func NewLongText(s string) (LongString, error) {
	if err := CheckLength(LongText, uint64(len(s))); err != nil {
		return LongString{}, err
	}
	return LongString{s}, nil
}

func (t TinyString) String() string   { return t.s }
func (t String) String() string       { return t.s }
func (t MediumString) String() string { return t.s }
func (t LongString) String() string   { return t.s }

// NewTextOf builds the text value of kind k from s.
func NewTextOf(k Kind, s string) (any, error) {
	switch k {
	case TinyText:
		return NewTinyText(s)
	case Text:
		return NewText(s)
	case MediumText:
		return NewMediumText(s)
	case LongText:
		return NewLongText(s)
	}
	return nil, &FormatError{Kind: k, Reason: "not a text type"}
}

// TextOf extracts the string from any text tier value.
func TextOf(v any) (string, bool) {
	switch t := v.(type) {
	case TinyString:
		return t.s, true
	case String:
		return t.s, true
	case MediumString:
		return t.s, true
	case LongString:
		return t.s, true
	}
	return "", false
}

// Clock is a time of day with millisecond precision.
type Clock struct {
	d time.Duration
}

const day = 24 * time.Hour

// NewClock builds a time of day from its components.
func NewClock(hour, minute, second, milli int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 || milli < 0 || milli > 999 {
		return Clock{}, &FormatError{
			Kind:   TimeOfDay,
			Value:  fmt.Sprintf("%d:%d:%d.%d", hour, minute, second, milli),
			Reason: "component out of range",
		}
	}
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(milli)*time.Millisecond
	return Clock{d: d}, nil
}

// ClockOf returns the time of day of t, truncated to milliseconds.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	c, _ := NewClock(h, m, s, t.Nanosecond()/int(time.Millisecond))
	return c
}

// ClockFromDuration builds a time of day from an offset since midnight.
func ClockFromDuration(d time.Duration) (Clock, error) {
	if d < 0 || d >= day {
		return Clock{}, &FormatError{Kind: TimeOfDay, Value: d.String(), Reason: "outside one day"}
	}
	return Clock{d: d.Truncate(time.Millisecond)}, nil
}

// Duration returns the offset since midnight.
func (c Clock) Duration() time.Duration { return c.d }

// Format renders the clock with a Go time layout.
func (c Clock) Format(layout string) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(c.d).Format(layout)
}

func (c Clock) String() string { return c.Format("15:04:05.000") }

// ParseClock accepts HH:MM:SS with an optional fractional part.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04:05.999999999", s)
	if err != nil {
		return Clock{}, &FormatError{Kind: TimeOfDay, Value: s, Reason: err.Error()}
	}
	return ClockOf(t), nil
}
