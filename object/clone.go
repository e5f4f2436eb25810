package object

// Clone returns a deep copy of the value. Scalars are returned as-is;
// aggregates get fresh handles with recursively cloned contents, so
// mutations on the copy never show through the original.
func Clone(v Value) Value {
	switch v.kind {
	case ListKind:
		src := v.List()
		items := make([]Value, len(src.items))
		for i, item := range src.items {
			items[i] = Clone(item)
		}
		return NewList(items)
	case TupleKind:
		src := v.Tuple()
		items := make([]Value, len(src.items))
		for i, item := range src.items {
			items[i] = Clone(item)
		}
		return NewTuple(items)
	case SetKind:
		src := v.Set()
		items := make([]Value, len(src.items))
		for i, item := range src.items {
			items[i] = Clone(item)
		}
		out := &Set{items: items}
		return Value{kind: SetKind, ref: out}
	case MapKind:
		src := v.Map()
		out := NewMap()
		m := out.Map()
		for _, k := range src.keys {
			m.Set(k, Clone(src.items[k]))
		}
		return out
	case RecordKind:
		src := v.Record()
		names := src.FieldNames()
		values := make([]Value, len(names))
		for i, name := range names {
			values[i] = Clone(src.fields[name])
		}
		return NewRecord(src.typeName, names, values)
	case VariantKind:
		src := v.Variant()
		args := make([]Value, len(src.args))
		for i, arg := range src.args {
			args[i] = Clone(arg)
		}
		return NewVariant(src.typeName, src.ctor, args, src.FieldNames())
	case RangeKind:
		r := v.Range()
		return NewRange(r.Low, r.High)
	case CounterKind:
		out := NewCounter()
		out.Counter().total = v.Counter().total
		return out
	case SpanKind:
		s := v.ref.(*spanParts)
		return Span(s.months, s.days)
	default:
		return v
	}
}
