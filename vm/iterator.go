package vm

import (
	"fmt"

	"github.com/candor-lang/candor/object"
)

// NumIterSlots is the number of iterator slots, which bounds loop
// nesting depth. The compiler enforces the same limit.
const NumIterSlots = 8

// iterSlot iterates a snapshot taken when the loop starts, so mutating
// the source collection mid-loop does not change the iteration. Ranges
// iterate lazily; their bounds are immutable.
type iterSlot struct {
	active bool
	pos    int
	keys   []object.Value // map keys, nil otherwise
	items  []object.Value
	ranged bool
	next   int64
	high   int64
}

func (s *iterSlot) start(v object.Value) error {
	s.active = true
	s.pos = 0
	s.keys = nil
	s.items = nil
	s.ranged = false
	switch v.Kind() {
	case object.ListKind:
		s.items = v.List().Items()
	case object.TupleKind:
		s.items = v.Tuple().Items()
	case object.SetKind:
		s.items = v.Set().Items()
	case object.RangeKind:
		r := v.Range()
		s.ranged = true
		s.next = r.Low
		s.high = r.High
	case object.MapKind:
		m := v.Map()
		for _, key := range m.Keys() {
			value, _ := m.Get(key)
			s.keys = append(s.keys, object.Text(key))
			s.items = append(s.items, value)
		}
	case object.TextKind:
		text, _ := v.AsText()
		for _, r := range text {
			s.items = append(s.items, object.Text(string(r)))
		}
	default:
		return fmt.Errorf("cannot iterate over %s", v.Kind())
	}
	return nil
}

// advance returns the next key and value. For non-map sources the key
// is the 1-based position.
func (s *iterSlot) advance() (object.Value, object.Value, bool) {
	if s.ranged {
		if s.next > s.high {
			return object.Value{}, object.Value{}, false
		}
		v := object.Int(s.next)
		s.next++
		s.pos++
		return object.Int(int64(s.pos)), v, true
	}
	if s.pos >= len(s.items) {
		return object.Value{}, object.Value{}, false
	}
	value := s.items[s.pos]
	var key object.Value
	if s.keys != nil {
		key = s.keys[s.pos]
	} else {
		key = object.Int(int64(s.pos + 1))
	}
	s.pos++
	return key, value, true
}

func (s *iterSlot) stop() {
	s.active = false
	s.keys = nil
	s.items = nil
}
