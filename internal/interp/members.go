package interp

import (
	"slices"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"

	"gard/internal/sched"
	"gard/internal/source"
	"gard/internal/token"
	"gard/internal/value"
)

type methodFn = func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error)

// member implements `recv.name` for reads.
func (rt *Runtime) member(recv value.Value, name string, sp source.Span) (value.Value, error) {
	switch recv.K {
	case value.KindNull:
		return value.Null, rt.typeError(sp, "cannot read %s of null", name)
	case value.KindObject:
		o := recv.Object()
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		if m := o.Class.Lookup(name); m != nil && !m.Static {
			return rt.boundMethod(m, recv, sp)
		}
		return value.Null, rt.typeError(sp, "%s has no member %s", o.Class.Name, name)
	case value.KindClass:
		c := recv.Class()
		if v, ok := c.Statics.Get(value.Str(name)); ok {
			return v, nil
		}
		if m := c.Lookup(name); m != nil && m.Static {
			return rt.boundMethod(m, recv, sp)
		}
		return value.Null, rt.typeError(sp, "class %s has no static member %s", c.Name, name)
	case value.KindAccount, value.KindAddress:
		return rt.accountMember(recv, name, sp)
	case value.KindMap:
		if fn := mapMethod(name); fn != nil {
			return value.Func(&boundNative{recv: recv, name: name, fn: fn}), nil
		}
		if name == "size" || name == "length" {
			return count(recv.Map().Len()), nil
		}
		// m.key читается как m["key"]
		return recv.Map().Lookup(value.Str(name)), nil
	}
	if v, ok := property(recv, name); ok {
		return v, nil
	}
	if fn := methodFor(recv.K, name); fn != nil {
		return value.Func(&boundNative{recv: recv, name: name, fn: fn}), nil
	}
	return value.Null, rt.typeError(sp, "%s has no member %s", recv.TypeName(), name)
}

func property(v value.Value, name string) (value.Value, bool) {
	n := -1
	switch name {
	case "length", "size":
		switch v.K {
		case value.KindString:
			n = utf8.RuneCountInString(v.Text())
		case value.KindArray:
			n = len(v.Array().Elems)
		case value.KindSet:
			n = v.Set().Len()
		case value.KindTuple:
			n = v.Tuple().Len()
		case value.KindChannel:
			n = v.Ref().(*sched.Channel).Len()
		}
	case "capacity":
		if v.K == value.KindChannel {
			n = v.Ref().(*sched.Channel).Cap()
		}
	case "parties":
		if v.K == value.KindBarrier {
			n = v.Ref().(*sched.Barrier).Parties()
		}
	}
	if n < 0 {
		return value.Null, false
	}
	return count(n), true
}

// setMember implements `recv.name = v`.
func (rt *Runtime) setMember(recv value.Value, name string, v value.Value, f FrameID, sp source.Span) error {
	switch recv.K {
	case value.KindObject:
		o := recv.Object()
		if o.IsReadonly(name) && !rt.inConstructorOf(f, recv) {
			return rt.throwf(sp, "ImmutableAssignmentError", "cannot assign to readonly field %s.%s outside the constructor", o.Class.Name, name)
		}
		o.Set(name, v)
		return nil
	case value.KindClass:
		recv.Class().Statics.Set(value.Str(name), v)
		return nil
	case value.KindMap:
		recv.Map().Set(value.Str(name), v)
		return nil
	case value.KindAccount:
		return rt.setAccountMember(recv, name, v, sp)
	}
	return rt.typeError(sp, "cannot set member %s on %s", name, recv.TypeName())
}

func (rt *Runtime) inConstructorOf(f FrameID, obj value.Value) bool {
	fr, ok := rt.env.thisFrame(f)
	return ok && fr.ctor && fr.this.K == value.KindObject && fr.this.Object() == obj.Object()
}

// index implements `recv[idx]` for reads.
func (rt *Runtime) index(recv value.Value, idx value.Value, sp source.Span) (value.Value, error) {
	switch recv.K {
	case value.KindArray:
		elems := recv.Array().Elems
		i, err := rt.position(idx, len(elems), sp)
		if err != nil {
			return value.Null, err
		}
		return elems[i], nil
	case value.KindTuple:
		elems := recv.Tuple().Elems()
		i, err := rt.position(idx, len(elems), sp)
		if err != nil {
			return value.Null, err
		}
		return elems[i], nil
	case value.KindString:
		runes := []rune(recv.Text())
		i, err := rt.position(idx, len(runes), sp)
		if err != nil {
			return value.Null, err
		}
		return value.Char(runes[i]), nil
	case value.KindMap:
		return recv.Map().Lookup(idx), nil
	case value.KindObject:
		if idx.K == value.KindString {
			return rt.member(recv, idx.Text(), sp)
		}
	}
	return value.Null, rt.typeError(sp, "cannot index %s with %s", recv.TypeName(), idx.TypeName())
}

func (rt *Runtime) position(idx value.Value, n int, sp source.Span) (int, error) {
	if !idx.K.IsIntegral() {
		return 0, rt.typeError(sp, "index must be an integer, got %s", idx.TypeName())
	}
	i := idx.AsInt()
	if i < 0 || i >= int64(n) {
		return 0, rt.throwf(sp, "RuntimeError", "index %d out of range [0, %d)", i, n)
	}
	return int(i), nil
}

// setIndex implements `recv[idx] = v`.
func (rt *Runtime) setIndex(recv value.Value, idx value.Value, v value.Value, sp source.Span) error {
	switch recv.K {
	case value.KindArray:
		a := recv.Array()
		i, err := rt.position(idx, len(a.Elems), sp)
		if err != nil {
			return err
		}
		a.Elems[i] = v
		return nil
	case value.KindMap:
		recv.Map().Set(idx, v)
		return nil
	case value.KindTuple:
		return rt.throwf(sp, "ImmutableAssignmentError", "tuples are immutable")
	}
	return rt.typeError(sp, "cannot assign index of %s", recv.TypeName())
}

func methodFor(k value.Kind, name string) methodFn {
	switch k {
	case value.KindArray:
		return arrayMethod(name)
	case value.KindString:
		return stringMethod(name)
	case value.KindSet:
		return setMethod(name)
	case value.KindTask, value.KindLock, value.KindSemaphore, value.KindChannel, value.KindBarrier:
		return handleMethod(k, name)
	}
	return nil
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null
}

func (rt *Runtime) intArg(args []value.Value, i int, sp source.Span) (int64, error) {
	v := arg(args, i)
	if !v.K.IsIntegral() {
		return 0, rt.typeError(sp, "argument %d must be an integer, got %s", i+1, v.TypeName())
	}
	return v.AsInt(), nil
}

// count wraps a Go length or index as an int, widening to long past int32.
func count(n int) value.Value {
	if i, err := safecast.Conv[int32](n); err == nil {
		return value.Int(i)
	}
	return value.Long(int64(n))
}

// clampRange resolves slice bounds; negative values count from the end.
func clampRange(n int, args []value.Value) (int, int) {
	lo, hi := 0, n
	fix := func(v value.Value, def int) int {
		if !v.K.IsIntegral() {
			return def
		}
		i := int(v.AsInt())
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	lo = fix(arg(args, 0), lo)
	hi = fix(arg(args, 1), hi)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func arrayMethod(name string) methodFn {
	switch name {
	case "push":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			a := recv.Array()
			a.Elems = append(a.Elems, args...)
			return count(len(a.Elems)), nil
		}
	case "pop":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			a := recv.Array()
			if len(a.Elems) == 0 {
				return value.Null, nil
			}
			v := a.Elems[len(a.Elems)-1]
			a.Elems = a.Elems[:len(a.Elems)-1]
			return v, nil
		}
	case "shift":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			a := recv.Array()
			if len(a.Elems) == 0 {
				return value.Null, nil
			}
			v := a.Elems[0]
			a.Elems = slices.Delete(a.Elems, 0, 1)
			return v, nil
		}
	case "unshift":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			a := recv.Array()
			a.Elems = slices.Insert(a.Elems, 0, args...)
			return count(len(a.Elems)), nil
		}
	case "slice":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			elems := recv.Array().Elems
			lo, hi := clampRange(len(elems), args)
			return value.NewArray(slices.Clone(elems[lo:hi])...), nil
		}
	case "concat":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			out := slices.Clone(recv.Array().Elems)
			for _, a := range args {
				if a.K == value.KindArray {
					out = append(out, a.Array().Elems...)
				} else {
					out = append(out, a)
				}
			}
			return value.NewArray(out...), nil
		}
	case "join":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			sep := ","
			if s := arg(args, 0); s.K == value.KindString {
				sep = s.Text()
			}
			parts := make([]string, len(recv.Array().Elems))
			for i, e := range recv.Array().Elems {
				parts[i] = e.String()
			}
			return value.Str(strings.Join(parts, sep)), nil
		}
	case "indexOf":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			x := arg(args, 0)
			i := slices.IndexFunc(recv.Array().Elems, func(e value.Value) bool { return value.Equal(e, x) })
			return count(i), nil
		}
	case "includes", "contains":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			x := arg(args, 0)
			return value.Bool(slices.ContainsFunc(recv.Array().Elems, func(e value.Value) bool { return value.Equal(e, x) })), nil
		}
	case "reverse":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			slices.Reverse(recv.Array().Elems)
			return recv, nil
		}
	case "map", "filter", "forEach", "find", "some", "every":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return rt.walkArray(name, recv, arg(args, 0), sp)
		}
	case "reduce":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			elems := slices.Clone(recv.Array().Elems)
			acc, start := arg(args, 1), 0
			if len(args) < 2 {
				if len(elems) == 0 {
					return value.Null, rt.typeError(sp, "reduce of empty array with no initial value")
				}
				acc, start = elems[0], 1
			}
			for _, e := range elems[start:] {
				var err error
				if acc, err = rt.callValue(arg(args, 0), []value.Value{acc, e}, sp); err != nil {
					return value.Null, err
				}
			}
			return acc, nil
		}
	case "sort":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return recv, rt.sortArray(recv.Array(), arg(args, 0), sp)
		}
	}
	return nil
}

func (rt *Runtime) walkArray(name string, recv, fn value.Value, sp source.Span) (value.Value, error) {
	elems := slices.Clone(recv.Array().Elems)
	var out []value.Value
	for i, e := range elems {
		r, err := rt.callValue(fn, []value.Value{e, count(i)}, sp)
		if err != nil {
			return value.Null, err
		}
		switch name {
		case "map":
			out = append(out, r)
		case "filter":
			if r.Truthy() {
				out = append(out, e)
			}
		case "find":
			if r.Truthy() {
				return e, nil
			}
		case "some":
			if r.Truthy() {
				return value.Bool(true), nil
			}
		case "every":
			if !r.Truthy() {
				return value.Bool(false), nil
			}
		}
	}
	switch name {
	case "map", "filter":
		return value.NewArray(out...), nil
	case "some":
		return value.Bool(false), nil
	case "every":
		return value.Bool(true), nil
	}
	return value.Null, nil
}

func (rt *Runtime) sortArray(a *value.Array, cmp value.Value, sp source.Span) error {
	var firstErr error
	slices.SortStableFunc(a.Elems, func(x, y value.Value) int {
		if firstErr != nil {
			return 0
		}
		if cmp.IsNull() {
			c, err := value.Compare(x, y)
			if err != nil {
				firstErr = rt.throwable(err, sp)
			}
			return c
		}
		r, err := rt.callValue(cmp, []value.Value{x, y}, sp)
		if err != nil {
			firstErr = err
			return 0
		}
		return int(r.AsInt())
	})
	return firstErr
}

func stringMethod(name string) methodFn {
	str1 := func(op func(s, a string) value.Value) methodFn {
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return op(recv.Text(), arg(args, 0).String()), nil
		}
	}
	switch name {
	case "upper", "toUpperCase":
		return str1(func(s, _ string) value.Value { return value.Str(strings.ToUpper(s)) })
	case "lower", "toLowerCase":
		return str1(func(s, _ string) value.Value { return value.Str(strings.ToLower(s)) })
	case "trim":
		return str1(func(s, _ string) value.Value { return value.Str(strings.TrimSpace(s)) })
	case "contains", "includes":
		return str1(func(s, a string) value.Value { return value.Bool(strings.Contains(s, a)) })
	case "startsWith":
		return str1(func(s, a string) value.Value { return value.Bool(strings.HasPrefix(s, a)) })
	case "endsWith":
		return str1(func(s, a string) value.Value { return value.Bool(strings.HasSuffix(s, a)) })
	case "indexOf":
		return str1(func(s, a string) value.Value {
			i := strings.Index(s, a)
			if i > 0 {
				i = utf8.RuneCountInString(s[:i])
			}
			return count(i)
		})
	case "split":
		return str1(func(s, a string) value.Value {
			parts := strings.Split(s, a)
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.Str(p)
			}
			return value.NewArray(out...)
		})
	case "chars":
		return str1(func(s, _ string) value.Value {
			var out []value.Value
			for _, r := range s {
				out = append(out, value.Char(r))
			}
			return value.NewArray(out...)
		})
	case "replace":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Str(strings.ReplaceAll(recv.Text(), arg(args, 0).String(), arg(args, 1).String())), nil
		}
	case "substring", "slice":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			runes := []rune(recv.Text())
			lo, hi := clampRange(len(runes), args)
			return value.Str(string(runes[lo:hi])), nil
		}
	case "charAt":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return rt.index(recv, arg(args, 0), sp)
		}
	case "repeat":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			v, err := value.Arith(token.Star, recv, arg(args, 0))
			if err != nil {
				return value.Null, rt.throwable(err, sp)
			}
			return v, nil
		}
	}
	return nil
}

func mapMethod(name string) methodFn {
	switch name {
	case "keys":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.NewArray(recv.Map().Keys()...), nil
		}
	case "values":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.NewArray(recv.Map().Values()...), nil
		}
	case "entries":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			m := recv.Map()
			keys, vals := m.Keys(), m.Values()
			out := make([]value.Value, len(keys))
			for i := range keys {
				out[i] = value.NewTuple(keys[i], vals[i])
			}
			return value.NewArray(out...), nil
		}
	case "has":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Bool(recv.Map().Has(arg(args, 0))), nil
		}
	case "get":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			if v, ok := recv.Map().Get(arg(args, 0)); ok {
				return v, nil
			}
			return arg(args, 1), nil
		}
	case "set":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			recv.Map().Set(arg(args, 0), arg(args, 1))
			return recv, nil
		}
	case "remove", "delete":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Bool(recv.Map().Delete(arg(args, 0))), nil
		}
	}
	return nil
}

func setMethod(name string) methodFn {
	other := func(rt *Runtime, args []value.Value, sp source.Span) (*value.Set, error) {
		o := arg(args, 0)
		if o.K != value.KindSet {
			return nil, rt.typeError(sp, "expected a set, got %s", o.TypeName())
		}
		return o.Set(), nil
	}
	switch name {
	case "add":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Bool(recv.Set().Add(arg(args, 0))), nil
		}
	case "remove", "delete":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Bool(recv.Set().Remove(arg(args, 0))), nil
		}
	case "has", "contains":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.Bool(recv.Set().Has(arg(args, 0))), nil
		}
	case "values", "toArray":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			return value.NewArray(recv.Set().Items()...), nil
		}
	case "union", "intersect", "difference":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			o, err := other(rt, args, sp)
			if err != nil {
				return value.Null, err
			}
			s := recv.Set()
			switch name {
			case "union":
				return value.FromSet(s.Union(o)), nil
			case "intersect":
				return value.FromSet(s.Intersect(o)), nil
			}
			return value.FromSet(s.Difference(o)), nil
		}
	case "isSubsetOf":
		return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
			o, err := other(rt, args, sp)
			if err != nil {
				return value.Null, err
			}
			return value.Bool(recv.Set().SubsetOf(o)), nil
		}
	}
	return nil
}

func handleMethod(k value.Kind, name string) methodFn {
	switch k {
	case value.KindTask:
		switch name {
		case "cancel":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				t := rt.taskOf(recv)
				rt.observed[t] = true
				rt.sched.Cancel(t)
				return value.Null, nil
			}
		case "isDone":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.taskOf(recv).Done()), nil
			}
		case "isCancelled":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.taskOf(recv).Cancelled()), nil
			}
		}
	case value.KindLock:
		switch name {
		case "lock":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Null, rt.wrap(rt.lockOf(recv).Acquire(), sp)
			}
		case "unlock":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				rt.lockOf(recv).Release()
				return value.Null, nil
			}
		case "tryLock":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.lockOf(recv).TryAcquire()), nil
			}
		case "isLocked":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.lockOf(recv).Locked()), nil
			}
		}
	case value.KindSemaphore:
		switch name {
		case "acquire":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Null, rt.wrap(rt.semaphoreOf(recv).Acquire(), sp)
			}
		case "release":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				rt.semaphoreOf(recv).Release()
				return value.Null, nil
			}
		case "tryAcquire":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.semaphoreOf(recv).TryAcquire()), nil
			}
		case "available":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Long(rt.semaphoreOf(recv).Available()), nil
			}
		}
	case value.KindChannel:
		switch name {
		case "send":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Null, rt.wrap(rt.channelOf(recv).Send(arg(args, 0)), sp)
			}
		case "receive", "recv":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				v, _, err := rt.channelOf(recv).Recv()
				return fromAny(v), rt.wrap(err, sp)
			}
		case "tryReceive":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				v, _ := rt.channelOf(recv).TryRecv()
				return fromAny(v), nil
			}
		case "close":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				rt.channelOf(recv).Close()
				return value.Null, nil
			}
		case "isClosed":
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Bool(rt.channelOf(recv).Closed()), nil
			}
		}
	case value.KindBarrier:
		if name == "wait" {
			return func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error) {
				return value.Null, rt.wrap(rt.barrierOf(recv).Wait(), sp)
			}
		}
	}
	return nil
}

// wrap maps a Go error to a thrown value; nil stays nil.
func (rt *Runtime) wrap(err error, sp source.Span) error {
	if err == nil {
		return nil
	}
	return rt.throwable(err, sp)
}
