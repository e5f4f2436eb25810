package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Display returns the user-facing rendering of a value, as produced by
// the show statement. Floats print with up to six decimal places and
// trailing zeros removed, so 5.0 displays as "5".
func (v Value) Display() string {
	switch v.kind {
	case NothingKind:
		return "nothing"
	case BoolKind:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case IntKind:
		return strconv.FormatInt(v.num, 10)
	case FloatKind:
		return formatFloat(v.f)
	case TextKind:
		return v.str
	case ListKind:
		return joinDisplay(v.List().items, "[", "]")
	case TupleKind:
		return joinDisplay(v.Tuple().items, "(", ")")
	case SetKind:
		return joinDisplay(v.Set().items, "{", "}")
	case MapKind:
		m := v.Map()
		var b strings.Builder
		b.WriteString("{")
		for i, k := range m.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(m.items[k].Display())
		}
		b.WriteString("}")
		return b.String()
	case RecordKind:
		r := v.Record()
		if len(r.order) == 0 {
			return r.typeName
		}
		var b strings.Builder
		b.WriteString(r.typeName)
		b.WriteString(" { ")
		for i, name := range r.order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(r.fields[name].Display())
		}
		b.WriteString(" }")
		return b.String()
	case VariantKind:
		va := v.Variant()
		if len(va.args) == 0 {
			return va.ctor
		}
		var b strings.Builder
		b.WriteString(va.ctor)
		b.WriteString("(")
		for i, arg := range va.args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Display())
		}
		b.WriteString(")")
		return b.String()
	case RangeKind:
		r := v.Range()
		return fmt.Sprintf("%d..%d", r.Low, r.High)
	case CounterKind:
		return strconv.FormatInt(v.Counter().total, 10)
	case DurationKind:
		return time.Duration(v.num).String()
	case DateKind:
		y, m, d := unpackDate(v.num)
		return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
	case InstantKind:
		return time.Unix(0, v.num).UTC().Format(time.RFC3339Nano)
	case TimeOfDayKind:
		ns := v.num
		h := ns / int64(time.Hour)
		min := (ns % int64(time.Hour)) / int64(time.Minute)
		sec := (ns % int64(time.Minute)) / int64(time.Second)
		return fmt.Sprintf("%02d:%02d:%02d", h, min, sec)
	case SpanKind:
		s := v.ref.(*spanParts)
		return formatSpan(s.months, s.days)
	default:
		return "unknown"
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

func formatSpan(months, days int) string {
	var parts []string
	if months != 0 {
		parts = append(parts, pluralize(months, "month"))
	}
	if days != 0 || months == 0 {
		parts = append(parts, pluralize(days, "day"))
	}
	return strings.Join(parts, " ")
}

func pluralize(n int, unit string) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func joinDisplay(items []Value, open, close string) string {
	var b strings.Builder
	b.WriteString(open)
	for i, v := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.Display())
	}
	b.WriteString(close)
	return b.String()
}
