package value

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Array is a mutable, growable sequence.
type Array struct {
	Elems []Value
}

func NewArray(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return FromArray(&Array{Elems: elems})
}

// Tuple is a fixed, immutable sequence.
type Tuple struct {
	elems []Value
}

func NewTuple(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return FromTuple(&Tuple{elems: cp})
}

func (t *Tuple) Elems() []Value { return t.elems }
func (t *Tuple) Len() int       { return len(t.elems) }

// Key normalizes a value used as a map key or set element: addresses key as
// their text and all integral numbers as long, so m["bob"] and m[sender]
// reach the same slot when sender is the address bob.
func Key(v Value) Value {
	switch v.K {
	case KindAddress:
		return Str(v.s)
	case KindShort, KindInt:
		return Long(v.n)
	case KindTuple:
		// кортежи сравниваются по содержимому, а не по указателю
		return Str("\x00tuple" + v.Repr())
	}
	return v
}

// Map is an insertion-ordered dictionary.
type Map struct {
	index map[Value]int
	keys  []Value
	vals  []Value
	// Zero is what Lookup yields for a missing key (typed ledger maps).
	Zero Value
}

func NewMap() *Map { return &Map{index: make(map[Value]int)} }

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Get(k Value) (Value, bool) {
	i, ok := m.index[Key(k)]
	if !ok {
		return Null, false
	}
	return m.vals[i], true
}

// Lookup is Get with the map's zero value for missing keys.
func (m *Map) Lookup(k Value) Value {
	if v, ok := m.Get(k); ok {
		return v
	}
	return m.Zero
}

func (m *Map) Has(k Value) bool {
	_, ok := m.index[Key(k)]
	return ok
}

func (m *Map) Set(k, v Value) {
	nk := Key(k)
	if i, ok := m.index[nk]; ok {
		m.vals[i] = v
		return
	}
	m.index[nk] = len(m.keys)
	m.keys = append(m.keys, keyForDisplay(k))
	m.vals = append(m.vals, v)
}

// Delete removes k and reports whether it was present.
func (m *Map) Delete(k Value) bool {
	nk := Key(k)
	i, ok := m.index[nk]
	if !ok {
		return false
	}
	delete(m.index, nk)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[Key(m.keys[j])] = j
	}
	return true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Values() []Value {
	out := make([]Value, len(m.vals))
	copy(out, m.vals)
	return out
}

func keyForDisplay(k Value) Value {
	if k.K == KindAddress {
		return Str(k.s)
	}
	return k
}

// Set is an insertion-ordered set of values.
type Set struct {
	members mapset.Set[Value]
	order   []Value
}

func NewSet(items ...Value) *Set {
	s := &Set{members: mapset.NewThreadUnsafeSet[Value]()}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v and reports whether it was new.
func (s *Set) Add(v Value) bool {
	if !s.members.Add(Key(v)) {
		return false
	}
	s.order = append(s.order, keyForDisplay(v))
	return true
}

func (s *Set) Has(v Value) bool { return s.members.Contains(Key(v)) }

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v Value) bool {
	k := Key(v)
	if !s.members.Contains(k) {
		return false
	}
	s.members.Remove(k)
	for i, it := range s.order {
		if Key(it) == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Set) Len() int { return s.members.Cardinality() }

// Items returns the members in insertion order.
func (s *Set) Items() []Value {
	out := make([]Value, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Set) Union(o *Set) *Set {
	out := NewSet(s.order...)
	for _, it := range o.order {
		out.Add(it)
	}
	return out
}

func (s *Set) Intersect(o *Set) *Set {
	out := NewSet()
	for _, it := range s.order {
		if o.Has(it) {
			out.Add(it)
		}
	}
	return out
}

func (s *Set) Difference(o *Set) *Set {
	out := NewSet()
	for _, it := range s.order {
		if !o.Has(it) {
			out.Add(it)
		}
	}
	return out
}

// SubsetOf reports whether every member of s is in o.
func (s *Set) SubsetOf(o *Set) bool { return s.members.IsSubset(o.members) }
