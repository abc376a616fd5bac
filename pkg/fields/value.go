package fields

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the runtime kind of a [Value].
type Kind uint8

// Kind values. KindList only ever holds multiselect selections; no operator
// produces a list.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindTimestamp
	KindList
)

// String returns the kind name used as the Type of a [Result].
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindList:
		return "list"
	}

	return "unknown"
}

// MsPerDay is the tolerance window for day-granularity date equality.
const MsPerDay int64 = 86_400_000

// Value is the tagged union exchanged by every evaluation step. The zero
// Value is null. Only the slot matching Kind is meaningful; construct values
// with [Null], [Text], [Number], [Bool], [Timestamp], [Time] or [List].
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	ms   int64
	list []string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Timestamp returns a timestamp value from epoch milliseconds (UTC).
func Timestamp(ms int64) Value { return Value{kind: KindTimestamp, ms: ms} }

// Time returns a timestamp value for t.
func Time(t time.Time) Value { return Timestamp(t.UTC().UnixMilli()) }

// List returns a list value holding a copy of items, in order.
func List(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)

	return Value{kind: KindList, list: cp}
}

// Kind returns the runtime kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether v carries no information: null, the empty string,
// or an empty list. False and zero are not empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	case KindNumber, KindBoolean, KindTimestamp:
		return false
	}

	return true
}

// Str returns the string slot. ok is false for non-string kinds.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number slot. ok is false for non-number kinds.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean slot. ok is false for non-boolean kinds.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBoolean }

// Millis returns the epoch milliseconds. ok is false for non-timestamp kinds.
func (v Value) Millis() (int64, bool) { return v.ms, v.kind == KindTimestamp }

// TimeValue returns the timestamp as a UTC time.
func (v Value) TimeValue() (time.Time, bool) {
	if v.kind != KindTimestamp {
		return time.Time{}, false
	}

	return time.UnixMilli(v.ms).UTC(), true
}

// Items returns a copy of the list slot. ok is false for non-list kinds.
func (v Value) Items() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}

	cp := make([]string, len(v.list))
	copy(cp, v.list)

	return cp, true
}

// AsNumber attempts the one implicit widening the model allows: numbers pass
// through and strings are parsed. Every other kind fails.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		return ParseNumber(v.str)
	case KindNull, KindBoolean, KindTimestamp, KindList:
		return 0, false
	}

	return 0, false
}

// ParseNumber parses a decimal operand, tolerating surrounding whitespace.
// NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// Display renders v for concatenation and output. Null renders as "".
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBoolean:
		if v.b {
			return "true"
		}

		return "false"
	case KindTimestamp:
		return FormatTimestamp(v.ms)
	case KindList:
		return strings.Join(v.list, ", ")
	}

	return ""
}

// Equal reports structural equality of kind and slot.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBoolean:
		return v.b == o.b
	case KindTimestamp:
		return v.ms == o.ms
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}

		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}

		return true
	}

	return false
}

// GoString makes values readable in test failure output.
func (v Value) GoString() string {
	if v.kind == KindNull {
		return "null"
	}

	return v.kind.String() + "(" + strconv.Quote(v.Display()) + ")"
}

// FormatNumber prints integers without a fraction and other values with the
// shortest representation that round-trips.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatTimestamp prints midnight UTC timestamps as a date and everything
// else as RFC 3339.
func FormatTimestamp(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}

	return t.Format(time.RFC3339)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseDate parses a date operand. Accepted forms are RFC 3339, date with
// minutes or seconds, a bare date (midnight UTC), and epoch milliseconds.
// Zone-less forms are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return time.UnixMilli(ms).UTC(), true
	}

	return time.Time{}, false
}
