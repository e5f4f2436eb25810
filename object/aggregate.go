package object

// Aggregate values are shared handles: assigning a list to a second
// variable aliases the same storage. Iteration safety comes from
// iterator snapshots in the machine, not from copying here.

// List is a mutable ordered sequence.
type List struct {
	items []Value
}

// NewList returns a list value holding the given items. The slice is
// used directly, not copied.
func NewList(items []Value) Value {
	return Value{kind: ListKind, ref: &List{items: items}}
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// At returns the item at a 0-based position. Bounds are the caller's
// responsibility.
func (l *List) At(i int) Value { return l.items[i] }

// SetAt replaces the item at a 0-based position.
func (l *List) SetAt(i int, v Value) { l.items[i] = v }

// Push appends an item.
func (l *List) Push(v Value) { l.items = append(l.items, v) }

// Pop removes and returns the last item. The second result is false
// when the list is empty.
func (l *List) Pop() (Value, bool) {
	if len(l.items) == 0 {
		return Value{}, false
	}
	v := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return v, true
}

// Items returns a copy of the underlying items.
func (l *List) Items() []Value {
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}

// Tuple is an immutable fixed-size sequence.
type Tuple struct {
	items []Value
}

// NewTuple returns a tuple value holding the given items.
func NewTuple(items []Value) Value {
	return Value{kind: TupleKind, ref: &Tuple{items: items}}
}

// Len returns the number of items.
func (t *Tuple) Len() int { return len(t.items) }

// At returns the item at a 0-based position.
func (t *Tuple) At(i int) Value { return t.items[i] }

// Items returns a copy of the underlying items.
func (t *Tuple) Items() []Value {
	out := make([]Value, len(t.items))
	copy(out, t.items)
	return out
}

// Set is a mutable collection of distinct values. Insertion order is
// preserved; membership uses structural equality, so sets stay small
// by design (lookup is linear).
type Set struct {
	items []Value
}

// NewSet returns a set value holding the distinct items, in first-seen
// order.
func NewSet(items []Value) Value {
	s := &Set{}
	for _, v := range items {
		s.Add(v)
	}
	return Value{kind: SetKind, ref: s}
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Contains reports structural membership.
func (s *Set) Contains(v Value) bool {
	for _, item := range s.items {
		if Equals(item, v) {
			return true
		}
	}
	return false
}

// Add inserts a value if no equal member exists.
func (s *Set) Add(v Value) {
	if !s.Contains(v) {
		s.items = append(s.items, v)
	}
}

// Remove deletes all members equal to the value.
func (s *Set) Remove(v Value) {
	kept := s.items[:0]
	for _, item := range s.items {
		if !Equals(item, v) {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// Items returns a copy of the members in insertion order.
func (s *Set) Items() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}

// Union returns a new set with the members of both sets.
func (s *Set) Union(other *Set) Value {
	out := NewSet(s.Items())
	for _, v := range other.items {
		out.Set().Add(v)
	}
	return out
}

// Intersect returns a new set with the members present in both sets.
func (s *Set) Intersect(other *Set) Value {
	var items []Value
	for _, v := range s.items {
		if other.Contains(v) {
			items = append(items, v)
		}
	}
	return NewSet(items)
}

// Map is a mutable text-keyed dictionary. Insertion order is preserved
// for display and iteration.
type Map struct {
	keys  []string
	items map[string]Value
}

// NewMap returns an empty map value.
func NewMap() Value {
	return Value{kind: MapKind, ref: &Map{items: map[string]Value{}}}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Get returns the value for a key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Set inserts or replaces an entry.
func (m *Map) Set(key string, v Value) {
	if _, exists := m.items[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Delete removes an entry.
func (m *Map) Delete(key string) {
	if _, exists := m.items[key]; !exists {
		return
	}
	delete(m.items, key)
	kept := m.keys[:0]
	for _, k := range m.keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	m.keys = kept
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Record is a mutable named structure with ordered fields.
type Record struct {
	typeName string
	order    []string
	fields   map[string]Value
}

// NewRecord returns a record value with fields in declaration order.
func NewRecord(typeName string, names []string, values []Value) Value {
	r := &Record{typeName: typeName, fields: map[string]Value{}}
	for i, name := range names {
		r.order = append(r.order, name)
		r.fields[name] = values[i]
	}
	return Value{kind: RecordKind, ref: r}
}

// TypeName returns the record's declared type name.
func (r *Record) TypeName() string { return r.typeName }

// FieldNames returns the field names in declaration order.
func (r *Record) FieldNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns a field value.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Set replaces a field value, adding the field if absent.
func (r *Record) Set(name string, v Value) {
	if _, exists := r.fields[name]; !exists {
		r.order = append(r.order, name)
	}
	r.fields[name] = v
}

// Variant is an immutable constructor application of an inductive
// type. Args may carry field names for record-style constructors.
type Variant struct {
	typeName   string
	ctor       string
	args       []Value
	fieldNames []string // nil for positional constructors
}

// NewVariant returns a variant value.
func NewVariant(typeName, ctor string, args []Value, fieldNames []string) Value {
	return Value{kind: VariantKind, ref: &Variant{
		typeName:   typeName,
		ctor:       ctor,
		args:       args,
		fieldNames: fieldNames,
	}}
}

// TypeName returns the inductive type name.
func (v *Variant) TypeName() string { return v.typeName }

// Ctor returns the constructor name.
func (v *Variant) Ctor() string { return v.ctor }

// Arity returns the number of constructor arguments.
func (v *Variant) Arity() int { return len(v.args) }

// Arg returns the argument at a 0-based position.
func (v *Variant) Arg(i int) Value { return v.args[i] }

// Field returns the named argument for record-style constructors.
func (v *Variant) Field(name string) (Value, bool) {
	for i, n := range v.fieldNames {
		if n == name {
			return v.args[i], true
		}
	}
	return Value{}, false
}

// Args returns a copy of the arguments.
func (v *Variant) Args() []Value {
	out := make([]Value, len(v.args))
	copy(out, v.args)
	return out
}

// FieldNames returns the argument field names, or nil for positional
// constructors.
func (v *Variant) FieldNames() []string {
	if v.fieldNames == nil {
		return nil
	}
	out := make([]string, len(v.fieldNames))
	copy(out, v.fieldNames)
	return out
}

// Range is an inclusive integer interval.
type Range struct {
	Low  int64
	High int64
}

// NewRange returns a range value covering low..high inclusive.
func NewRange(low, high int64) Value {
	return Value{kind: RangeKind, ref: &Range{Low: low, High: high}}
}

// Len returns the number of integers in the range.
func (r *Range) Len() int {
	if r.High < r.Low {
		return 0
	}
	return int(r.High - r.Low + 1)
}

// Counter is a convergent counter: a mutable total that merges by
// addition, so replicas can be combined in any order.
type Counter struct {
	total int64
}

// NewCounter returns a zero counter value.
func NewCounter() Value {
	return Value{kind: CounterKind, ref: &Counter{}}
}

// Total returns the current count.
func (c *Counter) Total() int64 { return c.total }

// Add adjusts the count by delta.
func (c *Counter) Add(delta int64) { c.total += delta }

// Merge folds another counter into this one.
func (c *Counter) Merge(other *Counter) { c.total += other.total }
