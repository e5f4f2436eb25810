package object

import "math"

// epsilon is the tolerance for float equality. Mixed int/float
// comparisons promote the integer before applying it.
const epsilon = 2.220446049250313e-16

// Equals reports structural equality between two values. Floats are
// compared within epsilon; aggregates are compared element-wise, not
// by handle identity.
func Equals(a, b Value) bool {
	if a.kind != b.kind {
		// Int and float cross-compare after promotion.
		if a.IsNumeric() && b.IsNumeric() {
			return floatsEqual(a.promote(), b.promote())
		}
		return false
	}
	switch a.kind {
	case NothingKind:
		return true
	case BoolKind, IntKind, DurationKind, DateKind, InstantKind, TimeOfDayKind:
		return a.num == b.num
	case FloatKind:
		return floatsEqual(a.f, b.f)
	case TextKind:
		return a.str == b.str
	case ListKind:
		return itemsEqual(a.List().items, b.List().items)
	case TupleKind:
		return itemsEqual(a.Tuple().items, b.Tuple().items)
	case SetKind:
		return setsEqual(a.Set(), b.Set())
	case MapKind:
		return mapsEqual(a.Map(), b.Map())
	case RecordKind:
		return recordsEqual(a.Record(), b.Record())
	case VariantKind:
		av, bv := a.Variant(), b.Variant()
		return av.typeName == bv.typeName && av.ctor == bv.ctor &&
			itemsEqual(av.args, bv.args)
	case RangeKind:
		ar, br := a.Range(), b.Range()
		return ar.Low == br.Low && ar.High == br.High
	case CounterKind:
		return a.Counter().total == b.Counter().total
	case SpanKind:
		as, bs := a.ref.(*spanParts), b.ref.(*spanParts)
		return as.months == bs.months && as.days == bs.days
	default:
		return false
	}
}

func (v Value) promote() float64 {
	if v.kind == IntKind {
		return float64(v.num)
	}
	return v.f
}

func floatsEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func itemsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equals(a[i], b[i]) {
			return false
		}
	}
	return true
}

func setsEqual(a, b *Set) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	for _, v := range a.items {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

func mapsEqual(a, b *Map) bool {
	if len(a.keys) != len(b.keys) {
		return false
	}
	for k, av := range a.items {
		bv, ok := b.items[k]
		if !ok || !Equals(av, bv) {
			return false
		}
	}
	return true
}

func recordsEqual(a, b *Record) bool {
	if a.typeName != b.typeName || len(a.fields) != len(b.fields) {
		return false
	}
	for name, av := range a.fields {
		bv, ok := b.fields[name]
		if !ok || !Equals(av, bv) {
			return false
		}
	}
	return true
}

// Compare orders two values, returning a negative, zero, or positive
// result. Ordering is defined for integers, durations, dates,
// instants, times of day, and an instant against a time of day (the
// instant's UTC clock time is used). Everything else is a kind error
// reported by the caller.
func Compare(a, b Value) (int, bool) {
	switch {
	case a.kind == IntKind && b.kind == IntKind,
		a.kind == DurationKind && b.kind == DurationKind,
		a.kind == DateKind && b.kind == DateKind,
		a.kind == InstantKind && b.kind == InstantKind,
		a.kind == TimeOfDayKind && b.kind == TimeOfDayKind:
		return compareInt64(a.num, b.num), true
	case a.kind == InstantKind && b.kind == TimeOfDayKind:
		return compareInt64(instantClockNanos(a.num), b.num), true
	case a.kind == TimeOfDayKind && b.kind == InstantKind:
		return compareInt64(a.num, instantClockNanos(b.num)), true
	default:
		return 0, false
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func instantClockNanos(unixNanos int64) int64 {
	const day = int64(24) * 60 * 60 * 1e9
	n := unixNanos % day
	if n < 0 {
		n += day
	}
	return n
}
