package interp

import (
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"gard/internal/ledger"
	"gard/internal/source"
	"gard/internal/value"
)

// Builtins returns a fresh copy of the native function table every Runtime
// starts with. Options.Natives entries are added on top.
func Builtins() map[string]NativeFunc {
	return map[string]NativeFunc{
		"print":        builtinPrint,
		"println":      builtinPrint,
		"len":          builtinLen,
		"str":          builtinStr,
		"typeof":       builtinTypeof,
		"sleep":        builtinSleep,
		"yield":        builtinYield,
		"now":          builtinNow,
		"Mutex":        builtinMutex,
		"Semaphore":    builtinSemaphore,
		"Channel":      builtinChannel,
		"Barrier":      builtinBarrier,
		"withDeadline": builtinWithDeadline,
		"address":      builtinAddress,
		"setSender":    builtinSetSender,
		"balanceOf":    builtinBalanceOf,
		"withValue":    builtinWithValue,
		"genesis":      builtinGenesis,
		"keccak256":    builtinKeccak,
		"normalize":    builtinNormalize,
		"range":        builtinRange,
		"set":          builtinSet,
		"assert":       builtinAssert,
		"short":        conversion(value.KindShort),
		"int":          conversion(value.KindInt),
		"long":         conversion(value.KindLong),
		"float":        conversion(value.KindFloat),
		"double":       conversion(value.KindDouble),
		"char":         conversion(value.KindChar),
	}
}

func (rt *Runtime) installBuiltins(extra map[string]NativeFunc) {
	table := Builtins()
	for name, fn := range extra {
		table[name] = fn
	}
	rt.builtins = make(map[string]value.Value, len(table))
	for name, fn := range table {
		rt.builtins[name] = value.Func(&Native{name: name, fn: fn})
	}
}

func builtinPrint(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	rt.write(strings.Join(parts, " ") + "\n")
	return value.Null, nil
}

func builtinLen(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	v := arg(args, 0)
	switch v.K {
	case value.KindString:
		return count(utf8.RuneCountInString(v.Text())), nil
	case value.KindMap:
		return count(v.Map().Len()), nil
	}
	if n, ok := property(v, "length"); ok {
		return n, nil
	}
	return value.Null, rt.typeError(sp, "len of %s", v.TypeName())
}

func builtinStr(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Str(arg(args, 0).String()), nil
}

func builtinTypeof(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Str(arg(args, 0).TypeName()), nil
}

func millis(rt *Runtime, v value.Value, sp source.Span) (time.Duration, error) {
	if !v.K.IsNumeric() {
		return 0, rt.typeError(sp, "expected milliseconds, got %s", v.TypeName())
	}
	return time.Duration(v.AsFloat() * float64(time.Millisecond)), nil
}

func builtinSleep(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	d, err := millis(rt, arg(args, 0), sp)
	if err != nil {
		return value.Null, err
	}
	return value.Null, rt.wrap(rt.sched.Sleep(d), sp)
}

func builtinYield(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Null, rt.wrap(rt.sched.Yield(), sp)
}

func builtinNow(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Long(rt.sched.Now().Milliseconds()), nil
}

func builtinMutex(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Handle(value.KindLock, rt.sched.NewLock()), nil
}

func builtinSemaphore(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	n := int64(1)
	if len(args) > 0 {
		var err error
		if n, err = rt.intArg(args, 0, sp); err != nil {
			return value.Null, err
		}
	}
	if n < 0 {
		return value.Null, rt.typeError(sp, "Semaphore permits must be >= 0")
	}
	return value.Handle(value.KindSemaphore, rt.sched.NewSemaphore(n)), nil
}

func builtinChannel(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	n := int64(0)
	if len(args) > 0 {
		var err error
		if n, err = rt.intArg(args, 0, sp); err != nil {
			return value.Null, err
		}
	}
	if n < 0 {
		return value.Null, rt.typeError(sp, "Channel capacity must be >= 0")
	}
	c, err := safecast.Conv[int32](n)
	if err != nil {
		return value.Null, rt.typeError(sp, "Channel capacity %d is out of range", n)
	}
	return value.Handle(value.KindChannel, rt.sched.NewChannel(int(c))), nil
}

func builtinBarrier(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	n, err := rt.intArg(args, 0, sp)
	if err != nil {
		return value.Null, err
	}
	if n < 1 {
		return value.Null, rt.typeError(sp, "Barrier needs at least one party")
	}
	parties, err := safecast.Conv[int32](n)
	if err != nil {
		return value.Null, rt.typeError(sp, "Barrier parties %d is out of range", n)
	}
	return value.Handle(value.KindBarrier, rt.sched.NewBarrier(int(parties))), nil
}

func builtinWithDeadline(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	t := arg(args, 0)
	if t.K != value.KindTask {
		return value.Null, rt.typeError(sp, "withDeadline expects a Task, got %s", t.TypeName())
	}
	d, err := millis(rt, arg(args, 1), sp)
	if err != nil {
		return value.Null, err
	}
	rt.sched.SetDeadline(rt.taskOf(t), d)
	return t, nil
}

func builtinAddress(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	a, err := rt.addressOf(arg(args, 0), sp)
	if err != nil {
		return value.Null, err
	}
	return value.Address(a), nil
}

func builtinSetSender(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	a, err := rt.addressOf(arg(args, 0), sp)
	if err != nil {
		return value.Null, err
	}
	tc := rt.ctx()
	if tc.working != nil {
		return value.Null, rt.typeError(sp, "setSender inside a transaction")
	}
	tc.sender = a
	return value.Null, nil
}

func builtinBalanceOf(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	a, err := rt.addressOf(arg(args, 0), sp)
	if err != nil {
		return value.Null, err
	}
	b, err := rt.balance(a, sp)
	if err != nil {
		return value.Null, err
	}
	return bigValue(b), nil
}

func builtinWithValue(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	amount, err := rt.toBig(arg(args, 0), sp)
	if err != nil {
		return value.Null, err
	}
	if amount.Sign() < 0 {
		return value.Null, rt.typeError(sp, "withValue amount must be >= 0")
	}
	rt.ctx().value = amount
	return value.Null, nil
}

// builtinGenesis credits initial balances: genesis({alice: 100, bob: 50}).
// Accounts that already exist are left alone.
func builtinGenesis(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	m := arg(args, 0)
	if m.K != value.KindMap {
		return value.Null, rt.typeError(sp, "genesis expects a map of balances")
	}
	if rt.ctx().working != nil {
		return value.Null, rt.typeError(sp, "genesis inside a transaction")
	}
	balances := make(map[string]*big.Int, m.Map().Len())
	keys, vals := m.Map().Keys(), m.Map().Values()
	for i, k := range keys {
		addr, err := rt.addressOf(k, sp)
		if err != nil {
			return value.Null, err
		}
		amount, err := rt.toBig(vals[i], sp)
		if err != nil {
			return value.Null, err
		}
		balances[addr] = amount
	}
	return value.Null, rt.wrap(rt.ledger.Genesis(balances), sp)
}

func builtinKeccak(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	return value.Str(ledger.Keccak256([]byte(arg(args, 0).String())).Hex()), nil
}

func builtinNormalize(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	v := arg(args, 0)
	if v.K != value.KindString {
		return value.Null, rt.typeError(sp, "normalize expects a string, got %s", v.TypeName())
	}
	form := norm.NFC
	if f := arg(args, 1); f.K == value.KindString {
		switch strings.ToUpper(f.Text()) {
		case "NFD":
			form = norm.NFD
		case "NFKC":
			form = norm.NFKC
		case "NFKD":
			form = norm.NFKD
		}
	}
	return value.Str(form.String(v.Text())), nil
}

// builtinRange: range(n), range(lo, hi), range(lo, hi, step).
func builtinRange(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	ints := make([]int64, len(args))
	for i := range args {
		n, err := rt.intArg(args, i, sp)
		if err != nil {
			return value.Null, err
		}
		ints[i] = n
	}
	var lo, hi, step int64 = 0, 0, 1
	switch len(ints) {
	case 1:
		hi = ints[0]
	case 2:
		lo, hi = ints[0], ints[1]
	case 3:
		lo, hi, step = ints[0], ints[1], ints[2]
	default:
		return value.Null, rt.typeError(sp, "range takes 1 to 3 arguments")
	}
	if step == 0 {
		return value.Null, rt.typeError(sp, "range step must not be zero")
	}
	var out []value.Value
	for i := lo; step > 0 && i < hi || step < 0 && i > hi; i += step {
		out = append(out, value.Integral(args[0].K, i))
	}
	return value.NewArray(out...), nil
}

func builtinSet(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	if len(args) == 1 {
		switch args[0].K {
		case value.KindArray, value.KindTuple, value.KindSet:
			items, err := rt.iterate(args[0], sp)
			if err != nil {
				return value.Null, err
			}
			return value.FromSet(value.NewSet(items...)), nil
		}
	}
	return value.FromSet(value.NewSet(args...)), nil
}

func builtinAssert(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
	if arg(args, 0).Truthy() {
		return value.Null, nil
	}
	msg := "assertion failed"
	if len(args) > 1 {
		msg += ": " + args[1].String()
	}
	return value.Null, rt.throwf(sp, "RuntimeError", "%s", msg)
}

func conversion(k value.Kind) NativeFunc {
	return func(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error) {
		v := arg(args, 0)
		if v.K == value.KindString {
			n, ok := new(big.Int).SetString(strings.TrimSpace(v.Text()), 10)
			if !ok || !n.IsInt64() {
				return value.Null, rt.typeError(sp, "cannot convert %s to %s", v.Repr(), k)
			}
			v = value.Long(n.Int64())
		}
		out, err := value.Convert(v, k)
		if err != nil {
			return value.Null, rt.throwable(err, sp)
		}
		return out, nil
	}
}
