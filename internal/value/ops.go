package value

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gard/internal/token"
)

// ErrDivisionByZero is returned by integer division and modulo by zero.
var ErrDivisionByZero = errors.New("division by zero")

// OpError reports operands an operator does not accept.
type OpError struct {
	Op          string
	Left, Right Kind
	Unary       bool
}

func (e *OpError) Error() string {
	if e.Unary {
		return fmt.Sprintf("operator %s is not defined for %s", e.Op, e.Left)
	}
	return fmt.Sprintf("operator %s is not defined for %s and %s", e.Op, e.Left, e.Right)
}

// rank orders numeric kinds for promotion: short < int < long < float < double.
// Char takes part in arithmetic as int.
func rank(k Kind) int {
	switch k {
	case KindShort:
		return 1
	case KindInt, KindChar:
		return 2
	case KindLong:
		return 3
	case KindFloat:
		return 4
	case KindDouble:
		return 5
	}
	return 0
}

func numericLike(v Value) bool { return v.K.IsNumeric() || v.K == KindChar }

// Promote returns the kind both operands convert to.
func Promote(a, b Kind) Kind {
	ra, rb := rank(a), rank(b)
	k := a
	if rb > ra {
		k = b
	}
	if k == KindChar {
		return KindInt
	}
	return k
}

// Arith applies + - * / %. `+` concatenates when either side is a string;
// integer results wrap to the promoted width.
func Arith(op token.Kind, a, b Value) (Value, error) {
	if op == token.Plus {
		if a.K == KindString || b.K == KindString {
			return Str(a.String() + b.String()), nil
		}
		if a.K == KindArray && b.K == KindArray {
			elems := append(append([]Value{}, a.Array().Elems...), b.Array().Elems...)
			return NewArray(elems...), nil
		}
	}
	if op == token.Star && a.K == KindString && b.K.IsIntegral() {
		if b.n < 0 {
			return Null, &OpError{Op: "*", Left: a.K, Right: b.K}
		}
		return Str(strings.Repeat(a.s, int(b.n))), nil
	}
	if !numericLike(a) || !numericLike(b) {
		return Null, &OpError{Op: op.Lexeme(), Left: a.K, Right: b.K}
	}

	k := Promote(a.K, b.K)
	if k.IsFloating() {
		x, y := a.AsFloat(), b.AsFloat()
		var r float64
		switch op {
		case token.Plus:
			r = x + y
		case token.Minus:
			r = x - y
		case token.Star:
			r = x * y
		case token.Slash:
			r = x / y
		case token.Percent:
			r = math.Mod(x, y)
		default:
			return Null, &OpError{Op: op.Lexeme(), Left: a.K, Right: b.K}
		}
		return Floating(k, r), nil
	}

	x, y := a.n, b.n
	var r int64
	switch op {
	case token.Plus:
		r = x + y
	case token.Minus:
		r = x - y
	case token.Star:
		r = x * y
	case token.Slash, token.Percent:
		if y == 0 {
			return Null, ErrDivisionByZero
		}
		x, y = narrow(k, x), narrow(k, y)
		if op == token.Slash {
			r = x / y
		} else {
			r = x % y
		}
	default:
		return Null, &OpError{Op: op.Lexeme(), Left: a.K, Right: b.K}
	}
	return Integral(k, r), nil
}

func narrow(k Kind, n int64) int64 {
	switch k {
	case KindShort:
		return int64(int16(n))
	case KindInt:
		return int64(int32(n))
	}
	return n
}

// Negate implements unary minus.
func Negate(v Value) (Value, error) {
	switch {
	case v.K.IsFloating():
		return Floating(v.K, -v.f), nil
	case v.K.IsIntegral():
		return Integral(v.K, -v.n), nil
	case v.K == KindChar:
		return Int(int32(-v.n)), nil
	}
	return Null, &OpError{Op: "-", Left: v.K, Unary: true}
}

// Step adds delta to a numeric value keeping its kind (++ and --).
func Step(v Value, delta int64) (Value, error) {
	switch {
	case v.K.IsFloating():
		return Floating(v.K, v.f+float64(delta)), nil
	case v.K.IsIntegral() || v.K == KindChar:
		return Integral(v.K, v.n+delta), nil
	}
	op := "++"
	if delta < 0 {
		op = "--"
	}
	return Null, &OpError{Op: op, Left: v.K, Unary: true}
}

// Equal is `==`: numbers compare by value across kinds, strings and
// addresses by text, tuples element-wise, references by identity.
func Equal(a, b Value) bool {
	if numericLike(a) && numericLike(b) {
		if a.K.IsFloating() || b.K.IsFloating() {
			return a.AsFloat() == b.AsFloat()
		}
		return a.n == b.n
	}
	switch {
	case a.K == KindNull || b.K == KindNull:
		return a.K == b.K
	case textual(a.K) && textual(b.K):
		return a.s == b.s
	case a.K != b.K:
		return false
	}
	switch a.K {
	case KindBool:
		return a.n == b.n
	case KindTuple:
		x, y := a.Tuple().elems, b.Tuple().elems
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return a.ref == b.ref
}

func textual(k Kind) bool { return k == KindString || k == KindAddress || k == KindAccount }

// Compare orders numbers, chars and strings; it returns -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	switch {
	case numericLike(a) && numericLike(b):
		if a.K.IsFloating() || b.K.IsFloating() {
			x, y := a.AsFloat(), b.AsFloat()
			if math.IsNaN(x) || math.IsNaN(y) {
				return 0, &OpError{Op: "<", Left: a.K, Right: b.K}
			}
			return cmp3(x, y), nil
		}
		return cmp3(a.n, b.n), nil
	case textual(a.K) && textual(b.K):
		return strings.Compare(a.s, b.s), nil
	}
	return 0, &OpError{Op: "<", Left: a.K, Right: b.K}
}

func cmp3[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// Convert casts a numeric or char value to kind k (wrapping or rounding).
func Convert(v Value, k Kind) (Value, error) {
	if !numericLike(v) {
		return Null, &OpError{Op: "convert", Left: v.K, Right: k}
	}
	switch {
	case k.IsFloating():
		return Floating(k, v.AsFloat()), nil
	case k.IsIntegral() || k == KindChar:
		return Integral(k, v.AsInt()), nil
	}
	return Null, &OpError{Op: "convert", Left: v.K, Right: k}
}
