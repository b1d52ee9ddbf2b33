package value

import (
	"math"
	"strconv"
	"strings"
)

// Value is a Gard runtime value. The zero Value is null.
//
// Payload by kind: n holds bool/short/int/long/char, f holds float/double,
// s holds string/address/account, ref holds everything mutable or opaque.
type Value struct {
	K   Kind
	n   int64
	f   float64
	s   string
	ref any
}

// Null is the null value.
var Null = Value{}

func Bool(b bool) Value {
	if b {
		return Value{K: KindBool, n: 1}
	}
	return Value{K: KindBool}
}

func Short(v int16) Value   { return Value{K: KindShort, n: int64(v)} }
func Int(v int32) Value     { return Value{K: KindInt, n: int64(v)} }
func Long(v int64) Value    { return Value{K: KindLong, n: v} }
func Float(v float32) Value { return Value{K: KindFloat, f: float64(v)} }
func Double(v float64) Value {
	return Value{K: KindDouble, f: v}
}
func Char(r rune) Value     { return Value{K: KindChar, n: int64(r)} }
func Str(s string) Value    { return Value{K: KindString, s: s} }
func Address(a string) Value {
	return Value{K: KindAddress, s: a}
}

// Account refers to a deployed contract by address; the ledger resolves it.
func Account(a string) Value { return Value{K: KindAccount, s: a} }

// Integral builds an integral value of kind k, wrapping n to its width.
func Integral(k Kind, n int64) Value {
	switch k {
	case KindShort:
		return Short(int16(n))
	case KindInt:
		return Int(int32(n))
	case KindChar:
		return Char(rune(int32(n)))
	}
	return Long(n)
}

// Floating builds a float or double; float rounds to 32 bits.
func Floating(k Kind, f float64) Value {
	if k == KindFloat {
		return Float(float32(f))
	}
	return Double(f)
}

func FromArray(a *Array) Value   { return Value{K: KindArray, ref: a} }
func FromMap(m *Map) Value       { return Value{K: KindMap, ref: m} }
func FromSet(s *Set) Value       { return Value{K: KindSet, ref: s} }
func FromTuple(t *Tuple) Value   { return Value{K: KindTuple, ref: t} }
func FromObject(o *Object) Value { return Value{K: KindObject, ref: o} }
func FromClass(c *Class) Value   { return Value{K: KindClass, ref: c} }
func Func(fn Function) Value     { return Value{K: KindFunction, ref: fn} }

// Handle wraps a scheduler object under one of the handle kinds.
func Handle(k Kind, h any) Value { return Value{K: k, ref: h} }

func (v Value) IsNull() bool { return v.K == KindNull }

// AsBool returns the payload of a bool.
func (v Value) AsBool() bool { return v.n != 0 }

// AsInt returns integral and char payloads as int64; floats are truncated.
func (v Value) AsInt() int64 {
	if v.K.IsFloating() {
		return int64(v.f)
	}
	return v.n
}

// AsFloat returns any numeric payload as float64.
func (v Value) AsFloat() float64 {
	if v.K.IsFloating() {
		return v.f
	}
	return float64(v.n)
}

func (v Value) AsChar() rune { return rune(v.n) }

// Text returns the payload of string, address and account values.
func (v Value) Text() string { return v.s }

func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)
	return a
}

func (v Value) Map() *Map {
	m, _ := v.ref.(*Map)
	return m
}

func (v Value) Set() *Set {
	s, _ := v.ref.(*Set)
	return s
}

func (v Value) Tuple() *Tuple {
	t, _ := v.ref.(*Tuple)
	return t
}

func (v Value) Object() *Object {
	o, _ := v.ref.(*Object)
	return o
}

func (v Value) Class() *Class {
	c, _ := v.ref.(*Class)
	return c
}

func (v Value) Function() Function {
	f, _ := v.ref.(Function)
	return f
}

// Ref returns the raw reference payload (handles).
func (v Value) Ref() any { return v.ref }

// TypeName is what `typeof` reports: the kind name, or the class name for objects.
func (v Value) TypeName() string {
	switch v.K {
	case KindObject:
		if o := v.Object(); o != nil && o.Class != nil {
			return o.Class.Name
		}
	case KindClass:
		return "class"
	}
	return v.K.String()
}

// Truthy: null, false, zero numbers, NUL char and "" are false.
func (v Value) Truthy() bool {
	switch v.K {
	case KindNull:
		return false
	case KindBool, KindShort, KindInt, KindLong, KindChar:
		return v.n != 0
	case KindFloat, KindDouble:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindString:
		return v.s != ""
	}
	return true
}

// String renders the value the way `print` shows it.
func (v Value) String() string {
	var b strings.Builder
	display(&b, v, false, 0)
	return b.String()
}

// Repr renders strings and chars quoted, as they appear inside containers.
func (v Value) Repr() string {
	var b strings.Builder
	display(&b, v, true, 0)
	return b.String()
}

const maxDisplayDepth = 16

func display(b *strings.Builder, v Value, quoted bool, depth int) {
	if depth > maxDisplayDepth {
		b.WriteString("...")
		return
	}
	switch v.K {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.AsBool()))
	case KindShort, KindInt, KindLong:
		b.WriteString(strconv.FormatInt(v.n, 10))
	case KindFloat:
		b.WriteString(formatFloat(v.f, 32))
	case KindDouble:
		b.WriteString(formatFloat(v.f, 64))
	case KindChar:
		if quoted {
			b.WriteString(strconv.QuoteRune(v.AsChar()))
		} else {
			b.WriteRune(v.AsChar())
		}
	case KindString:
		if quoted {
			b.WriteString(strconv.Quote(v.s))
		} else {
			b.WriteString(v.s)
		}
	case KindAddress:
		b.WriteString(v.s)
	case KindAccount:
		b.WriteString("account(" + v.s + ")")
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.Array().Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			display(b, e, true, depth+1)
		}
		b.WriteByte(']')
	case KindTuple:
		elems := v.Tuple().Elems()
		b.WriteByte('(')
		for i, e := range elems {
			if i > 0 {
				b.WriteString(", ")
			}
			display(b, e, true, depth+1)
		}
		if len(elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case KindSet:
		b.WriteString("#{")
		for i, e := range v.Set().Items() {
			if i > 0 {
				b.WriteString(", ")
			}
			display(b, e, true, depth+1)
		}
		b.WriteByte('}')
	case KindMap:
		b.WriteByte('{')
		m := v.Map()
		for i, k := range m.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			display(b, k, true, depth+1)
			b.WriteString(": ")
			val, _ := m.Get(k)
			display(b, val, true, depth+1)
		}
		b.WriteByte('}')
	case KindObject:
		o := v.Object()
		b.WriteString(o.Class.Name)
		if msg, ok := o.Get("message"); ok && o.Class.IsError() {
			b.WriteString(": ")
			display(b, msg, false, depth+1)
			return
		}
		b.WriteString(" {")
		for i, name := range o.FieldNames() {
			if i > 0 {
				b.WriteString(",")
			}
			f, _ := o.Get(name)
			b.WriteString(" " + name + ": ")
			display(b, f, true, depth+1)
		}
		b.WriteString(" }")
	case KindClass:
		b.WriteString("class " + v.Class().Name)
	case KindFunction:
		name := v.Function().Name()
		if name == "" {
			name = "anonymous"
		}
		b.WriteString("function " + name)
	default:
		if s, ok := v.ref.(interface{ String() string }); ok {
			b.WriteString(s.String())
			return
		}
		b.WriteString(v.K.String())
	}
}

// formatFloat печатает целые значения с ".0", чтобы 3.0 не выглядело как int.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
