// Package object defines the Value type that flows through the
// compiler and the virtual machine.
//
// Value is a closed tagged union. Scalars are stored inline; lists,
// sets, maps, records, variants, and counters are stored as shared
// handles, so copies of a Value alias the same underlying aggregate.
// Deep copies are explicit via Clone.
package object

import (
	"time"
)

// Kind is the tag of a Value. The set of kinds is closed: every
// operation in the machine switches over it exhaustively.
type Kind uint8

const (
	NothingKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	TextKind
	ListKind
	TupleKind
	SetKind
	MapKind
	RecordKind
	VariantKind
	RangeKind
	CounterKind
	DurationKind
	DateKind
	InstantKind
	TimeOfDayKind
	SpanKind
)

// String returns the human-readable name of the kind, as used in error
// messages.
func (k Kind) String() string {
	switch k {
	case NothingKind:
		return "nothing"
	case BoolKind:
		return "boolean"
	case IntKind:
		return "integer"
	case FloatKind:
		return "float"
	case TextKind:
		return "text"
	case ListKind:
		return "list"
	case TupleKind:
		return "tuple"
	case SetKind:
		return "set"
	case MapKind:
		return "map"
	case RecordKind:
		return "record"
	case VariantKind:
		return "variant"
	case RangeKind:
		return "range"
	case CounterKind:
		return "counter"
	case DurationKind:
		return "duration"
	case DateKind:
		return "date"
	case InstantKind:
		return "instant"
	case TimeOfDayKind:
		return "time"
	case SpanKind:
		return "span"
	default:
		return "unknown"
	}
}

// Value is the single boundary type for all runtime data. The zero
// value is Nothing.
type Value struct {
	kind Kind
	num  int64   // bool, int, duration (ns), instant (unix ns), time-of-day (ns), packed date
	f    float64 // float
	str  string  // text
	ref  any     // aggregate handle
}

// Nothing returns the absent value.
func Nothing() Value {
	return Value{kind: NothingKind}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	var n int64
	if b {
		n = 1
	}
	return Value{kind: BoolKind, num: n}
}

// Int returns an integer value. Integer arithmetic wraps on overflow.
func Int(i int64) Value {
	return Value{kind: IntKind, num: i}
}

// Float returns a float value.
func Float(f float64) Value {
	return Value{kind: FloatKind, f: f}
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: TextKind, str: s}
}

// Duration returns a duration value.
func Duration(d time.Duration) Value {
	return Value{kind: DurationKind, num: int64(d)}
}

// Date returns a calendar date value.
func Date(year int, month time.Month, day int) Value {
	return Value{kind: DateKind, num: packDate(year, month, day)}
}

// Instant returns a point-in-time value with nanosecond precision.
func Instant(t time.Time) Value {
	return Value{kind: InstantKind, num: t.UnixNano()}
}

// TimeOfDay returns a clock-time value from nanoseconds since midnight.
func TimeOfDay(ns int64) Value {
	return Value{kind: TimeOfDayKind, num: ns}
}

// Span returns a calendar span value (months and days are kept
// separate because months have no fixed length).
func Span(months, days int) Value {
	return Value{kind: SpanKind, ref: &spanParts{months: months, days: days}}
}

type spanParts struct {
	months int
	days   int
}

func packDate(year int, month time.Month, day int) int64 {
	return int64(year)*10000 + int64(month)*100 + int64(day)
}

func unpackDate(n int64) (int, time.Month, int) {
	return int(n / 10000), time.Month((n / 100) % 100), int(n % 100)
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNothing reports whether the value is Nothing.
func (v Value) IsNothing() bool {
	return v.kind == NothingKind
}

// IsInt reports whether the value is an integer.
func (v Value) IsInt() bool {
	return v.kind == IntKind
}

// IsNumeric reports whether the value is an integer or a float.
func (v Value) IsNumeric() bool {
	return v.kind == IntKind || v.kind == FloatKind
}

// AsBool extracts a boolean. The second result is false on kind
// mismatch.
func (v Value) AsBool() (bool, bool) {
	if v.kind != BoolKind {
		return false, false
	}
	return v.num != 0, true
}

// AsInt extracts an integer.
func (v Value) AsInt() (int64, bool) {
	if v.kind != IntKind {
		return 0, false
	}
	return v.num, true
}

// AsFloat extracts a float. Integers are not converted; use Promote
// for arithmetic.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != FloatKind {
		return 0, false
	}
	return v.f, true
}

// AsText extracts a text string.
func (v Value) AsText() (string, bool) {
	if v.kind != TextKind {
		return "", false
	}
	return v.str, true
}

// AsDuration extracts a duration.
func (v Value) AsDuration() (time.Duration, bool) {
	if v.kind != DurationKind {
		return 0, false
	}
	return time.Duration(v.num), true
}

// AsDate extracts a calendar date.
func (v Value) AsDate() (int, time.Month, int, bool) {
	if v.kind != DateKind {
		return 0, 0, 0, false
	}
	y, m, d := unpackDate(v.num)
	return y, m, d, true
}

// AsInstant extracts a point in time (UTC).
func (v Value) AsInstant() (time.Time, bool) {
	if v.kind != InstantKind {
		return time.Time{}, false
	}
	return time.Unix(0, v.num).UTC(), true
}

// AsTimeOfDay extracts nanoseconds since midnight.
func (v Value) AsTimeOfDay() (int64, bool) {
	if v.kind != TimeOfDayKind {
		return 0, false
	}
	return v.num, true
}

// AsSpan extracts a calendar span as (months, days).
func (v Value) AsSpan() (int, int, bool) {
	if v.kind != SpanKind {
		return 0, 0, false
	}
	s := v.ref.(*spanParts)
	return s.months, s.days, true
}

// List returns the list handle, or nil if the value is not a list.
func (v Value) List() *List {
	if v.kind != ListKind {
		return nil
	}
	return v.ref.(*List)
}

// Tuple returns the tuple handle, or nil.
func (v Value) Tuple() *Tuple {
	if v.kind != TupleKind {
		return nil
	}
	return v.ref.(*Tuple)
}

// Set returns the set handle, or nil.
func (v Value) Set() *Set {
	if v.kind != SetKind {
		return nil
	}
	return v.ref.(*Set)
}

// Map returns the map handle, or nil.
func (v Value) Map() *Map {
	if v.kind != MapKind {
		return nil
	}
	return v.ref.(*Map)
}

// Record returns the record handle, or nil.
func (v Value) Record() *Record {
	if v.kind != RecordKind {
		return nil
	}
	return v.ref.(*Record)
}

// Variant returns the variant handle, or nil.
func (v Value) Variant() *Variant {
	if v.kind != VariantKind {
		return nil
	}
	return v.ref.(*Variant)
}

// Range returns the range handle, or nil.
func (v Value) Range() *Range {
	if v.kind != RangeKind {
		return nil
	}
	return v.ref.(*Range)
}

// Counter returns the counter handle, or nil.
func (v Value) Counter() *Counter {
	if v.kind != CounterKind {
		return nil
	}
	return v.ref.(*Counter)
}

// Truthy converts the value to a branch condition: booleans by
// identity, integers by comparison with zero, Nothing is false, and
// everything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case BoolKind:
		return v.num != 0
	case IntKind:
		return v.num != 0
	case NothingKind:
		return false
	default:
		return true
	}
}
