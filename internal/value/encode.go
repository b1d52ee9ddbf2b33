package value

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack writes [kind, payload]. Values without a stable wire form
// (functions, objects, handles) are written as their display string.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	k := v.K
	switch k {
	case KindFunction, KindObject, KindClass, KindTask, KindLock, KindSemaphore, KindBarrier, KindChannel:
		k = KindString
		v = Str(v.String())
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(k)); err != nil {
		return err
	}
	switch k {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.AsBool())
	case KindShort, KindInt, KindLong, KindChar:
		return enc.EncodeInt(v.n)
	case KindFloat, KindDouble:
		return enc.EncodeFloat64(v.f)
	case KindString, KindAddress, KindAccount:
		return enc.EncodeString(v.s)
	case KindArray:
		return encodeList(enc, v.Array().Elems)
	case KindTuple:
		return encodeList(enc, v.Tuple().elems)
	case KindSet:
		return encodeList(enc, v.Set().order)
	case KindMap:
		// пары ключ-значение, затем Zero, если он задан
		m := v.Map()
		n := 2 * len(m.keys)
		if !m.Zero.IsNull() {
			n++
		}
		if err := enc.EncodeArrayLen(n); err != nil {
			return err
		}
		for i, key := range m.keys {
			if err := key.EncodeMsgpack(enc); err != nil {
				return err
			}
			if err := m.vals[i].EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		if !m.Zero.IsNull() {
			return m.Zero.EncodeMsgpack(enc)
		}
		return nil
	}
	return fmt.Errorf("value: cannot encode %s", k)
}

func encodeList(enc *msgpack.Encoder, elems []Value) error {
	if err := enc.EncodeArrayLen(len(elems)); err != nil {
		return err
	}
	for _, e := range elems {
		if err := e.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("value: expected [kind, payload], got %d items", n)
	}
	raw, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	k := Kind(raw)
	switch k {
	case KindNull:
		*v = Null
		return dec.DecodeNil()
	case KindBool:
		b, err := dec.DecodeBool()
		*v = Bool(b)
		return err
	case KindShort, KindInt, KindLong, KindChar:
		i, err := dec.DecodeInt64()
		*v = Integral(k, i)
		return err
	case KindFloat, KindDouble:
		f, err := dec.DecodeFloat64()
		*v = Floating(k, f)
		return err
	case KindString, KindAddress, KindAccount:
		s, err := dec.DecodeString()
		*v = Value{K: k, s: s}
		return err
	case KindArray, KindTuple, KindSet:
		elems, err := decodeList(dec)
		if err != nil {
			return err
		}
		switch k {
		case KindArray:
			*v = NewArray(elems...)
		case KindTuple:
			*v = NewTuple(elems...)
		default:
			*v = FromSet(NewSet(elems...))
		}
		return nil
	case KindMap:
		flat, err := decodeList(dec)
		if err != nil {
			return err
		}
		m := NewMap()
		if len(flat)%2 != 0 {
			m.Zero = flat[len(flat)-1]
			flat = flat[:len(flat)-1]
		}
		for i := 0; i < len(flat); i += 2 {
			m.Set(flat[i], flat[i+1])
		}
		*v = FromMap(m)
		return nil
	}
	return fmt.Errorf("value: cannot decode kind %d", raw)
}

func decodeList(dec *msgpack.Decoder) ([]Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	out := make([]Value, max(n, 0))
	for i := range out {
		if err := out[i].DecodeMsgpack(dec); err != nil {
			return nil, err
		}
	}
	return out, nil
}
