package value_test

import (
	"errors"
	"math"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"gard/internal/token"
	"gard/internal/value"
)

func TestArithPromotion(t *testing.T) {
	tests := []struct {
		name string
		a, b value.Value
		op   token.Kind
		want value.Value
	}{
		{"short+short", value.Short(2), value.Short(3), token.Plus, value.Short(5)},
		{"short+int", value.Short(2), value.Int(3), token.Plus, value.Int(5)},
		{"int*long", value.Int(4), value.Long(5), token.Star, value.Long(20)},
		{"long+float", value.Long(1), value.Float(0.5), token.Plus, value.Float(1.5)},
		{"float+double", value.Float(1), value.Double(0.25), token.Plus, value.Double(1.25)},
		{"char+int", value.Char('a'), value.Int(1), token.Plus, value.Int(98)},
		{"int wraps", value.Int(math.MaxInt32), value.Int(1), token.Plus, value.Int(math.MinInt32)},
		{"short wraps", value.Short(math.MaxInt16), value.Short(1), token.Plus, value.Short(math.MinInt16)},
		{"long wraps", value.Long(math.MaxInt64), value.Long(1), token.Plus, value.Long(math.MinInt64)},
		{"int division truncates", value.Int(-7), value.Int(2), token.Slash, value.Int(-3)},
		{"modulo sign", value.Int(-7), value.Int(2), token.Percent, value.Int(-1)},
		{"min int / -1 wraps", value.Int(math.MinInt32), value.Int(-1), token.Slash, value.Int(math.MinInt32)},
		{"string concat", value.Str("n="), value.Int(3), token.Plus, value.Str("n=3")},
		{"string repeat", value.Str("ab"), value.Int(3), token.Star, value.Str("ababab")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := value.Arith(tt.op, tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.K != tt.want.K || !value.Equal(got, tt.want) {
				t.Fatalf("got %s (%s), want %s (%s)", got, got.K, tt.want, tt.want.K)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, op := range []token.Kind{token.Slash, token.Percent} {
		if _, err := value.Arith(op, value.Int(1), value.Int(0)); !errors.Is(err, value.ErrDivisionByZero) {
			t.Errorf("%v: expected ErrDivisionByZero, got %v", op, err)
		}
	}
	got, err := value.Arith(token.Slash, value.Double(1), value.Double(0))
	if err != nil || !math.IsInf(got.AsFloat(), 1) {
		t.Errorf("floating division must follow IEEE-754, got %v %v", got, err)
	}
}

func TestArithTypeMismatch(t *testing.T) {
	_, err := value.Arith(token.Minus, value.Str("a"), value.Int(1))
	var oe *value.OpError
	if !errors.As(err, &oe) || oe.Left != value.KindString {
		t.Fatalf("expected OpError, got %v", err)
	}
}

func TestEqualAcrossKinds(t *testing.T) {
	if !value.Equal(value.Int(1), value.Long(1)) {
		t.Errorf("1 == 1L")
	}
	if !value.Equal(value.Str("bob"), value.Address("bob")) {
		t.Errorf("address compares by text")
	}
	if value.Equal(value.Null, value.Int(0)) {
		t.Errorf("null != 0")
	}
	a, b := value.NewArray(value.Int(1)), value.NewArray(value.Int(1))
	if value.Equal(a, b) || !value.Equal(a, a) {
		t.Errorf("arrays compare by identity")
	}
	if !value.Equal(value.NewTuple(value.Int(1), value.Str("x")), value.NewTuple(value.Long(1), value.Str("x"))) {
		t.Errorf("tuples compare element-wise")
	}
}

func TestMapKeyNormalization(t *testing.T) {
	m := value.NewMap()
	m.Set(value.Str("bob"), value.Int(50))
	got, ok := m.Get(value.Address("bob"))
	if !ok || got.AsInt() != 50 {
		t.Fatalf("address key must reach the string slot")
	}
	m.Set(value.Int(1), value.Str("one"))
	if v, _ := m.Get(value.Long(1)); v.Text() != "one" {
		t.Fatalf("integral keys must normalize")
	}
	if !m.Delete(value.Str("bob")) || m.Len() != 1 {
		t.Fatalf("delete failed")
	}
	if v, _ := m.Get(value.Short(1)); v.Text() != "one" {
		t.Fatalf("index must be rebuilt after delete")
	}
}

func TestSetKeepsInsertionOrder(t *testing.T) {
	s := value.NewSet(value.Int(3), value.Int(1), value.Int(3), value.Int(2))
	if s.Len() != 3 {
		t.Fatalf("len = %d", s.Len())
	}
	if got := value.FromSet(s).String(); got != "#{3, 1, 2}" {
		t.Fatalf("display = %q", got)
	}
	s.Remove(value.Long(1))
	if got := value.FromSet(s).String(); got != "#{3, 2}" {
		t.Fatalf("after remove = %q", got)
	}
	other := value.NewSet(value.Int(2), value.Int(9))
	if got := value.FromSet(s.Union(other)).String(); got != "#{3, 2, 9}" {
		t.Fatalf("union = %q", got)
	}
	if !value.NewSet(value.Int(2)).SubsetOf(s) {
		t.Fatalf("subset")
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	inner := value.NewMap()
	inner.Set(value.Str("alice"), value.Int(10))
	outer := value.NewMap()
	outer.Set(value.Str("balances"), value.FromMap(inner))

	cp := value.DeepCopy(value.FromMap(outer))
	b, _ := cp.Map().Get(value.Str("balances"))
	b.Map().Set(value.Str("alice"), value.Int(0))

	orig, _ := inner.Get(value.Str("alice"))
	if orig.AsInt() != 10 {
		t.Fatalf("deep copy leaked a write into the original")
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Double(3), "3.0"},
		{value.Double(0.1), "0.1"},
		{value.Float(1.5), "1.5"},
		{value.Long(-5), "-5"},
		{value.NewArray(value.Str("a"), value.Char('b'), value.Null), `["a", 'b', null]`},
		{value.NewTuple(value.Int(1)), "(1,)"},
		{value.Bool(true), "true"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	m := value.NewMap()
	m.Set(value.Str("to"), value.Address("alice"))
	m.Set(value.Str("amounts"), value.NewArray(value.Int(1), value.Long(2), value.Double(0.5)))
	in := []value.Value{value.FromMap(m), value.Char('x'), value.Null, value.NewTuple(value.Bool(true))}

	data, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []value.Value
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
	for i := range in {
		if in[i].Repr() != out[i].Repr() || in[i].K != out[i].K {
			t.Errorf("item %d: %s != %s", i, in[i].Repr(), out[i].Repr())
		}
	}
}
