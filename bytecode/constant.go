package bytecode

import (
	"fmt"
	"time"

	"github.com/candor-lang/candor/object"
)

// ConstantKind tags a pooled constant.
type ConstantKind string

const (
	ConstNothing  ConstantKind = "nothing"
	ConstBool     ConstantKind = "bool"
	ConstInt      ConstantKind = "int"
	ConstFloat    ConstantKind = "float"
	ConstText     ConstantKind = "text"
	ConstDuration ConstantKind = "duration"
	ConstDate     ConstantKind = "date"
	ConstInstant  ConstantKind = "instant"
	ConstTime     ConstantKind = "time"
	ConstSpan     ConstantKind = "span"
)

// Constant is a serializable scalar in the constant pool. Constants
// never hold runtime handles; aggregate literals are built by
// instructions at run time. Int doubles as the storage for booleans,
// durations (nanoseconds), instants (unix nanoseconds), times of day
// (nanoseconds since midnight), date components, and span months, with
// Int2 holding span days.
type Constant struct {
	Kind  ConstantKind `json:"type"`
	Int   int64        `json:"int,omitempty"`
	Int2  int64        `json:"int2,omitempty"`
	Float float64      `json:"float,omitempty"`
	Text  string       `json:"text,omitempty"`
}

// NothingConst returns the nothing constant.
func NothingConst() Constant { return Constant{Kind: ConstNothing} }

// BoolConst returns a boolean constant.
func BoolConst(b bool) Constant {
	var n int64
	if b {
		n = 1
	}
	return Constant{Kind: ConstBool, Int: n}
}

// IntConst returns an integer constant.
func IntConst(i int64) Constant { return Constant{Kind: ConstInt, Int: i} }

// FloatConst returns a float constant.
func FloatConst(f float64) Constant { return Constant{Kind: ConstFloat, Float: f} }

// TextConst returns a text constant.
func TextConst(s string) Constant { return Constant{Kind: ConstText, Text: s} }

// DurationConst returns a duration constant.
func DurationConst(d time.Duration) Constant {
	return Constant{Kind: ConstDuration, Int: int64(d)}
}

// DateConst returns a date constant packed as year*10000+month*100+day.
func DateConst(year int, month time.Month, day int) Constant {
	return Constant{Kind: ConstDate, Int: int64(year)*10000 + int64(month)*100 + int64(day)}
}

// InstantConst returns an instant constant in unix nanoseconds.
func InstantConst(t time.Time) Constant {
	return Constant{Kind: ConstInstant, Int: t.UnixNano()}
}

// TimeConst returns a time-of-day constant.
func TimeConst(nanos int64) Constant { return Constant{Kind: ConstTime, Int: nanos} }

// SpanConst returns a calendar span constant.
func SpanConst(months, days int) Constant {
	return Constant{Kind: ConstSpan, Int: int64(months), Int2: int64(days)}
}

// Value converts the constant to a runtime value. The machine does
// this once at load time, so the dispatch loop only ever sees values.
func (c Constant) Value() (object.Value, error) {
	switch c.Kind {
	case ConstNothing:
		return object.Nothing(), nil
	case ConstBool:
		return object.Bool(c.Int != 0), nil
	case ConstInt:
		return object.Int(c.Int), nil
	case ConstFloat:
		return object.Float(c.Float), nil
	case ConstText:
		return object.Text(c.Text), nil
	case ConstDuration:
		return object.Duration(time.Duration(c.Int)), nil
	case ConstDate:
		return object.Date(int(c.Int/10000), time.Month((c.Int/100)%100), int(c.Int%100)), nil
	case ConstInstant:
		return object.Instant(time.Unix(0, c.Int)), nil
	case ConstTime:
		return object.TimeOfDay(c.Int), nil
	case ConstSpan:
		return object.Span(int(c.Int), int(c.Int2)), nil
	default:
		return object.Value{}, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
}

// Equal reports whether two constants are identical.
func (c Constant) Equal(other Constant) bool {
	return c == other
}
