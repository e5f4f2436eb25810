package object

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		value Value
		want  bool
	}{
		{Bool(true), true},
		{Bool(false), false},
		{Int(0), false},
		{Int(1), true},
		{Int(-3), true},
		{Nothing(), false},
		{Text(""), true},
		{Float(0.0), true},
		{NewList(nil), true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.value.Truthy(), "truthy(%s)", tt.value.Display())
	}
}

func TestDisplayScalars(t *testing.T) {
	require.Equal(t, "5", Int(5).Display())
	require.Equal(t, "-12", Int(-12).Display())
	require.Equal(t, "true", Bool(true).Display())
	require.Equal(t, "false", Bool(false).Display())
	require.Equal(t, "nothing", Nothing().Display())
	require.Equal(t, "hi", Text("hi").Display())

	// Floats render with up to six decimals and no trailing zeros.
	require.Equal(t, "5", Float(5.0).Display())
	require.Equal(t, "2.5", Float(2.5).Display())
	require.Equal(t, "0.333333", Float(1.0/3.0).Display())
}

func TestDisplayAggregates(t *testing.T) {
	list := NewList([]Value{Int(1), Int(2), Int(3)})
	require.Equal(t, "[1, 2, 3]", list.Display())

	tuple := NewTuple([]Value{Int(1), Text("a")})
	require.Equal(t, "(1, a)", tuple.Display())

	set := NewSet([]Value{Int(1), Int(2), Int(2)})
	require.Equal(t, "{1, 2}", set.Display())

	m := NewMap()
	m.Map().Set("x", Int(1))
	m.Map().Set("y", Int(2))
	require.Equal(t, "{x: 1, y: 2}", m.Display())

	empty := NewRecord("Point", nil, nil)
	require.Equal(t, "Point", empty.Display())

	rec := NewRecord("Point", []string{"x", "y"}, []Value{Int(1), Int(2)})
	require.Equal(t, "Point { x: 1, y: 2 }", rec.Display())

	bare := NewVariant("Color", "Red", nil, nil)
	require.Equal(t, "Red", bare.Display())

	some := NewVariant("Option", "Some", []Value{Int(7)}, nil)
	require.Equal(t, "Some(7)", some.Display())
}

func TestEquals(t *testing.T) {
	require.True(t, Equals(Int(5), Int(5)))
	require.False(t, Equals(Int(5), Int(6)))
	require.True(t, Equals(Float(0.1+0.2), Float(0.3)))
	require.True(t, Equals(Int(5), Float(5.0)))
	require.True(t, Equals(Nothing(), Nothing()))
	require.False(t, Equals(Nothing(), Int(0)))
	require.True(t, Equals(Text("a"), Text("a")))

	a := NewList([]Value{Int(1), Int(2)})
	b := NewList([]Value{Int(1), Int(2)})
	require.True(t, Equals(a, b))

	s1 := NewSet([]Value{Int(1), Int(2)})
	s2 := NewSet([]Value{Int(2), Int(1)})
	require.True(t, Equals(s1, s2))
}

func TestCompare(t *testing.T) {
	cmp, ok := Compare(Int(1), Int(2))
	require.True(t, ok)
	require.Equal(t, -1, cmp)

	cmp, ok = Compare(Duration(time.Second), Duration(time.Minute))
	require.True(t, ok)
	require.Equal(t, -1, cmp)

	cmp, ok = Compare(Date(2024, time.March, 1), Date(2024, time.January, 15))
	require.True(t, ok)
	require.Equal(t, 1, cmp)

	// Floats have no defined ordering.
	_, ok = Compare(Float(1), Float(2))
	require.False(t, ok)

	_, ok = Compare(Int(1), Text("a"))
	require.False(t, ok)
}

func TestArithmetic(t *testing.T) {
	v, err := Add(Int(2), Int(3))
	require.NoError(t, err)
	require.Equal(t, Int(5), v)

	v, err = Add(Int(2), Float(0.5))
	require.NoError(t, err)
	require.Equal(t, Float(2.5), v)

	v, err = Add(Text("n = "), Int(4))
	require.NoError(t, err)
	require.Equal(t, Text("n = 4"), v)

	v, err = Div(Int(7), Int(2))
	require.NoError(t, err)
	require.Equal(t, Int(3), v)

	_, err = Div(Int(1), Int(0))
	require.Error(t, err)

	_, err = Mod(Int(1), Int(0))
	require.Error(t, err)

	v, err = Mod(Int(7), Int(3))
	require.NoError(t, err)
	require.Equal(t, Int(1), v)
}

// Integer arithmetic wraps like native fixed-width integers rather than
// erroring or promoting at the boundaries.
func TestIntegerWraparound(t *testing.T) {
	v, err := Add(Int(math.MaxInt64), Int(1))
	require.NoError(t, err)
	require.Equal(t, Int(math.MinInt64), v)

	v, err = Sub(Int(math.MinInt64), Int(1))
	require.NoError(t, err)
	require.Equal(t, Int(math.MaxInt64), v)

	v, err = Mul(Int(math.MaxInt64), Int(2))
	require.NoError(t, err)
	require.Equal(t, Int(-2), v)
}

func TestTemporalArithmetic(t *testing.T) {
	v, err := Add(Duration(time.Second), Duration(2*time.Second))
	require.NoError(t, err)
	d, ok := v.AsDuration()
	require.True(t, ok)
	require.Equal(t, 3*time.Second, d)

	v, err = Add(Date(2024, time.January, 31), Span(1, 0))
	require.NoError(t, err)
	y, m, day, ok := v.AsDate()
	require.True(t, ok)
	// Normalized the same way the standard library does.
	require.Equal(t, 2024, y)
	require.Equal(t, time.March, m)
	require.Equal(t, 2, day)

	v, err = Sub(Date(2024, time.March, 15), Span(0, 14))
	require.NoError(t, err)
	_, m, day, _ = v.AsDate()
	require.Equal(t, time.March, m)
	require.Equal(t, 1, day)
}

func TestIndexing(t *testing.T) {
	list := NewList([]Value{Text("a"), Text("b"), Text("c")})

	v, err := Index(list, Int(1))
	require.NoError(t, err)
	require.Equal(t, Text("a"), v)

	v, err = Index(list, Int(3))
	require.NoError(t, err)
	require.Equal(t, Text("c"), v)

	_, err = Index(list, Int(0))
	require.Error(t, err)

	_, err = Index(list, Int(4))
	require.Error(t, err)

	v, err = Index(Text("héllo"), Int(2))
	require.NoError(t, err)
	require.Equal(t, Text("é"), v)
}

func TestSlice(t *testing.T) {
	list := NewList([]Value{Int(1), Int(2), Int(3), Int(4)})

	v, err := Slice(list, Int(2), Int(3))
	require.NoError(t, err)
	require.Equal(t, "[2, 3]", v.Display())

	_, err = Slice(list, Int(0), Int(2))
	require.Error(t, err)

	_, err = Slice(list, Int(1), Int(5))
	require.Error(t, err)
}

func TestSharedHandles(t *testing.T) {
	list := NewList([]Value{Int(1)})
	alias := list
	alias.List().Push(Int(2))
	require.Equal(t, 2, list.List().Len())
}

func TestClone(t *testing.T) {
	inner := NewList([]Value{Int(1)})
	outer := NewList([]Value{inner})
	copied := Clone(outer)

	copied.List().At(0).List().Push(Int(2))
	require.Equal(t, 1, inner.List().Len())
	require.Equal(t, 2, copied.List().At(0).List().Len())
}

func TestCounter(t *testing.T) {
	a := NewCounter()
	a.Counter().Add(5)
	b := NewCounter()
	b.Counter().Add(3)
	a.Counter().Merge(b.Counter())
	require.Equal(t, int64(8), a.Counter().Total())
	require.Equal(t, "8", a.Display())
}

func TestSetOperations(t *testing.T) {
	a := NewSet([]Value{Int(1), Int(2)})
	b := NewSet([]Value{Int(2), Int(3)})

	union := a.Set().Union(b.Set())
	require.Equal(t, "{1, 2, 3}", union.Display())

	inter := a.Set().Intersect(b.Set())
	require.Equal(t, "{2}", inter.Display())

	a.Set().Remove(Int(1))
	require.Equal(t, "{2}", a.Display())
}
