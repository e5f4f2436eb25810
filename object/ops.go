package object

import (
	"strings"
	"time"

	"github.com/candor-lang/candor/errz"
)

// Arithmetic dispatches on runtime tags. Integer pairs stay integral
// (division truncates); a float on either side promotes the other
// operand; text on either side of + concatenates display strings.

func typeErrorf(format string, args ...any) error {
	return errz.Newf(errz.ErrType, format, args...)
}

func valueErrorf(format string, args ...any) error {
	return errz.Newf(errz.ErrValue, format, args...)
}

// Add applies the + operator.
func Add(a, b Value) (Value, error) {
	if a.kind == TextKind || b.kind == TextKind {
		return Text(a.Display() + b.Display()), nil
	}
	switch {
	case a.kind == IntKind && b.kind == IntKind:
		return Int(a.num + b.num), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.promote() + b.promote()), nil
	case a.kind == DurationKind && b.kind == DurationKind:
		return Duration(time.Duration(a.num + b.num)), nil
	case a.kind == DateKind && b.kind == SpanKind:
		return addSpanToDate(a, b.ref.(*spanParts), 1), nil
	case a.kind == SpanKind && b.kind == DateKind:
		return addSpanToDate(b, a.ref.(*spanParts), 1), nil
	}
	return Value{}, typeErrorf("cannot add %s and %s", a.kind, b.kind)
}

// Sub applies the - operator.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.kind == IntKind && b.kind == IntKind:
		return Int(a.num - b.num), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.promote() - b.promote()), nil
	case a.kind == DurationKind && b.kind == DurationKind:
		return Duration(time.Duration(a.num - b.num)), nil
	case a.kind == DateKind && b.kind == SpanKind:
		return addSpanToDate(a, b.ref.(*spanParts), -1), nil
	}
	return Value{}, typeErrorf("cannot subtract %s from %s", b.kind, a.kind)
}

// Mul applies the * operator.
func Mul(a, b Value) (Value, error) {
	switch {
	case a.kind == IntKind && b.kind == IntKind:
		return Int(a.num * b.num), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.promote() * b.promote()), nil
	}
	return Value{}, typeErrorf("cannot multiply %s and %s", a.kind, b.kind)
}

// Div applies the / operator. Integer division truncates toward zero.
// A zero divisor is an error for both integers and floats.
func Div(a, b Value) (Value, error) {
	switch {
	case a.kind == IntKind && b.kind == IntKind:
		if b.num == 0 {
			return Value{}, valueErrorf("division by zero")
		}
		return Int(a.num / b.num), nil
	case a.IsNumeric() && b.IsNumeric():
		bf := b.promote()
		if bf == 0 {
			return Value{}, valueErrorf("division by zero")
		}
		return Float(a.promote() / bf), nil
	}
	return Value{}, typeErrorf("cannot divide %s by %s", a.kind, b.kind)
}

// Mod applies the % operator, defined for integers only.
func Mod(a, b Value) (Value, error) {
	if a.kind != IntKind || b.kind != IntKind {
		return Value{}, typeErrorf("cannot take %s modulo %s", a.kind, b.kind)
	}
	if b.num == 0 {
		return Value{}, valueErrorf("modulo by zero")
	}
	return Int(a.num % b.num), nil
}

// Negate applies unary minus.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case IntKind:
		return Int(-v.num), nil
	case FloatKind:
		return Float(-v.f), nil
	case DurationKind:
		return Duration(time.Duration(-v.num)), nil
	}
	return Value{}, typeErrorf("cannot negate %s", v.kind)
}

func addSpanToDate(d Value, s *spanParts, sign int) Value {
	y, m, day := unpackDate(d.num)
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	t = t.AddDate(0, sign*s.months, sign*s.days)
	return Date(t.Year(), t.Month(), t.Day())
}

// Index returns the element at a 1-based position for lists, tuples,
// text (runes), and ranges, or the value for a text key in a map.
func Index(container, index Value) (Value, error) {
	if container.kind == MapKind {
		key, ok := index.AsText()
		if !ok {
			return Value{}, typeErrorf("map keys are text, got %s", index.kind)
		}
		v, found := container.Map().Get(key)
		if !found {
			return Value{}, valueErrorf("key %q not found", key)
		}
		return v, nil
	}
	idx, ok := index.AsInt()
	if !ok {
		return Value{}, typeErrorf("index must be an integer, got %s", index.kind)
	}
	switch container.kind {
	case ListKind:
		l := container.List()
		if idx < 1 || idx > int64(l.Len()) {
			return Value{}, valueErrorf("index %d out of range (1..%d)", idx, l.Len())
		}
		return l.At(int(idx - 1)), nil
	case TupleKind:
		t := container.Tuple()
		if idx < 1 || idx > int64(t.Len()) {
			return Value{}, valueErrorf("index %d out of range (1..%d)", idx, t.Len())
		}
		return t.At(int(idx - 1)), nil
	case TextKind:
		runes := []rune(container.str)
		if idx < 1 || idx > int64(len(runes)) {
			return Value{}, valueErrorf("index %d out of range (1..%d)", idx, len(runes))
		}
		return Text(string(runes[idx-1])), nil
	case RangeKind:
		r := container.Range()
		if idx < 1 || idx > int64(r.Len()) {
			return Value{}, valueErrorf("index %d out of range (1..%d)", idx, r.Len())
		}
		return Int(r.Low + idx - 1), nil
	}
	return Value{}, typeErrorf("cannot index into %s", container.kind)
}

// SetIndex stores into a list at a 1-based position, or into a map at
// a text key.
func SetIndex(container, index, value Value) error {
	switch container.kind {
	case ListKind:
		idx, ok := index.AsInt()
		if !ok {
			return typeErrorf("index must be an integer, got %s", index.kind)
		}
		l := container.List()
		if idx < 1 || idx > int64(l.Len()) {
			return valueErrorf("index %d out of range (1..%d)", idx, l.Len())
		}
		l.SetAt(int(idx-1), value)
		return nil
	case MapKind:
		key, ok := index.AsText()
		if !ok {
			return typeErrorf("map keys are text, got %s", index.kind)
		}
		container.Map().Set(key, value)
		return nil
	}
	return typeErrorf("cannot assign into %s by index", container.kind)
}

// Slice returns the 1-based inclusive subrange of a list or text.
// low may exceed high by one to produce an empty result.
func Slice(container, low, high Value) (Value, error) {
	lo, ok := low.AsInt()
	if !ok {
		return Value{}, typeErrorf("slice bounds must be integers, got %s", low.kind)
	}
	hi, ok := high.AsInt()
	if !ok {
		return Value{}, typeErrorf("slice bounds must be integers, got %s", high.kind)
	}
	switch container.kind {
	case ListKind:
		l := container.List()
		if err := checkSliceBounds(lo, hi, int64(l.Len())); err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			items = append(items, l.At(int(i-1)))
		}
		return NewList(items), nil
	case TextKind:
		runes := []rune(container.str)
		if err := checkSliceBounds(lo, hi, int64(len(runes))); err != nil {
			return Value{}, err
		}
		if lo > hi {
			return Text(""), nil
		}
		return Text(string(runes[lo-1 : hi])), nil
	}
	return Value{}, typeErrorf("cannot slice %s", container.kind)
}

func checkSliceBounds(lo, hi, length int64) error {
	if lo < 1 || hi > length || lo > hi+1 {
		return valueErrorf("slice %d..%d out of range (1..%d)", lo, hi, length)
	}
	return nil
}

// Length returns the element count of a collection, or the byte length
// of text.
func Length(v Value) (Value, error) {
	switch v.kind {
	case TextKind:
		return Int(int64(len(v.str))), nil
	case ListKind:
		return Int(int64(v.List().Len())), nil
	case TupleKind:
		return Int(int64(v.Tuple().Len())), nil
	case SetKind:
		return Int(int64(v.Set().Len())), nil
	case MapKind:
		return Int(int64(v.Map().Len())), nil
	case RangeKind:
		return Int(int64(v.Range().Len())), nil
	}
	return Value{}, typeErrorf("%s has no length", v.kind)
}

// Contains reports membership: substring for text, key for maps,
// structural membership for lists, tuples, sets, and ranges.
func Contains(container, item Value) (Value, error) {
	switch container.kind {
	case TextKind:
		sub, ok := item.AsText()
		if !ok {
			return Value{}, typeErrorf("cannot search text for %s", item.kind)
		}
		return Bool(strings.Contains(container.str, sub)), nil
	case ListKind:
		return Bool(containsValue(container.List().items, item)), nil
	case TupleKind:
		return Bool(containsValue(container.Tuple().items, item)), nil
	case SetKind:
		return Bool(container.Set().Contains(item)), nil
	case MapKind:
		key, ok := item.AsText()
		if !ok {
			return Bool(false), nil
		}
		_, found := container.Map().Get(key)
		return Bool(found), nil
	case RangeKind:
		n, ok := item.AsInt()
		if !ok {
			return Bool(false), nil
		}
		r := container.Range()
		return Bool(n >= r.Low && n <= r.High), nil
	}
	return Value{}, typeErrorf("cannot test membership in %s", container.kind)
}

func containsValue(items []Value, v Value) bool {
	for _, item := range items {
		if Equals(item, v) {
			return true
		}
	}
	return false
}
