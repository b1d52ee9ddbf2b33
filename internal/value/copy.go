package value

// DeepCopy copies arrays, maps, sets and objects recursively; scalars,
// tuples of scalars, functions, classes and handles are shared.
func DeepCopy(v Value) Value {
	return deepCopy(v, make(map[any]Value))
}

func deepCopy(v Value, seen map[any]Value) Value {
	if !v.K.IsRef() && v.K != KindTuple {
		return v
	}
	if cp, ok := seen[v.ref]; ok {
		return cp
	}
	switch v.K {
	case KindArray:
		a := &Array{Elems: make([]Value, len(v.Array().Elems))}
		out := FromArray(a)
		seen[v.ref] = out
		for i, e := range v.Array().Elems {
			a.Elems[i] = deepCopy(e, seen)
		}
		return out
	case KindTuple:
		src := v.Tuple().elems
		t := &Tuple{elems: make([]Value, len(src))}
		for i, e := range src {
			t.elems[i] = deepCopy(e, seen)
		}
		return FromTuple(t)
	case KindMap:
		src := v.Map()
		m := NewMap()
		m.Zero = src.Zero
		out := FromMap(m)
		seen[v.ref] = out
		for i, k := range src.keys {
			m.Set(k, deepCopy(src.vals[i], seen))
		}
		return out
	case KindSet:
		s := NewSet(v.Set().order...)
		out := FromSet(s)
		seen[v.ref] = out
		return out
	case KindObject:
		src := v.Object()
		o := NewObject(src.Class)
		out := FromObject(o)
		seen[v.ref] = out
		for _, name := range src.order {
			o.Set(name, deepCopy(src.fields[name], seen))
		}
		for name := range src.ro {
			o.MarkReadonly(name)
		}
		return out
	}
	return v
}
