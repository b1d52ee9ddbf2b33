package interp

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"gard/internal/ast"
	"gard/internal/sched"
	"gard/internal/source"
	"gard/internal/token"
	"gard/internal/value"
)

// Eval evaluates one expression in frame f of the runtime's environment.
func (rt *Runtime) Eval(x ast.Expr, f FrameID) (value.Value, error) { return rt.eval(x, f) }

func (rt *Runtime) eval(x ast.Expr, f FrameID) (value.Value, error) {
	switch x := x.(type) {
	case *ast.Literal:
		return literal(x), nil
	case *ast.Ident:
		return rt.lookup(x.Name, f, x.Span())
	case *ast.ThisExpr:
		fr, ok := rt.env.thisFrame(f)
		if !ok {
			return value.Null, rt.typeError(x.Span(), "this outside a method")
		}
		return fr.this, nil
	case *ast.SuperExpr:
		return value.Null, rt.throwf(x.Span(), "SyntaxError", "super must be called or followed by a member")
	case *ast.TemplateLit:
		var b strings.Builder
		for _, p := range x.Parts {
			b.WriteString(p.Text)
			if p.X == nil {
				continue
			}
			v, err := rt.eval(p.X, f)
			if err != nil {
				return value.Null, err
			}
			b.WriteString(v.String())
		}
		return value.Str(b.String()), nil
	case *ast.Paren:
		return rt.eval(x.X, f)
	case *ast.Unary:
		return rt.evalUnary(x, f)
	case *ast.Postfix:
		r, err := rt.refOf(x.X, f)
		if err != nil {
			return value.Null, err
		}
		old, err := r.get()
		if err != nil {
			return value.Null, err
		}
		next, err := value.Step(old, stepOf(x.Op))
		if err != nil {
			return value.Null, rt.throwable(err, x.Span())
		}
		return old, r.set(next)
	case *ast.Binary:
		return rt.evalBinary(x, f)
	case *ast.IsExpr:
		v, err := rt.eval(x.X, f)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(rt.isType(v, x.Type, f)), nil
	case *ast.TypeofExpr:
		v, err := rt.eval(x.X, f)
		if err != nil {
			return value.Null, err
		}
		return value.Str(v.TypeName()), nil
	case *ast.AwaitExpr:
		v, err := rt.eval(x.X, f)
		if err != nil {
			return value.Null, err
		}
		return rt.await(v, x.Span())
	case *ast.SpawnExpr:
		return rt.evalSpawn(x, f)
	case *ast.NewExpr:
		cv, err := rt.eval(x.Class, f)
		if err != nil {
			return value.Null, err
		}
		if cv.K != value.KindClass {
			return value.Null, rt.typeError(x.Class.Span(), "new expects a class, got %s", cv.TypeName())
		}
		args, err := rt.evalArgs(x.Args, f)
		if err != nil {
			return value.Null, err
		}
		return rt.instantiate(cv.Class(), args, x.Span())
	case *ast.Assign:
		return rt.evalAssign(x, f)
	case *ast.Ternary:
		c, err := rt.eval(x.Cond, f)
		if err != nil {
			return value.Null, err
		}
		if c.Truthy() {
			return rt.eval(x.Then, f)
		}
		return rt.eval(x.Else, f)
	case *ast.Call:
		callee, args, skip, err := rt.callTarget(x, f)
		if err != nil || skip {
			return value.Null, err
		}
		return rt.callValue(callee, args, x.Span())
	case *ast.Member:
		if _, ok := x.X.(*ast.SuperExpr); ok {
			return rt.superMember(f, x.Name, x.Span())
		}
		recv, err := rt.eval(x.X, f)
		if err != nil {
			return value.Null, err
		}
		if x.Optional && recv.IsNull() {
			return value.Null, nil
		}
		return rt.member(recv, x.Name, x.Span())
	case *ast.Index:
		recv, err := rt.eval(x.X, f)
		if err != nil {
			return value.Null, err
		}
		idx, err := rt.eval(x.Index, f)
		if err != nil {
			return value.Null, err
		}
		return rt.index(recv, idx, x.Span())
	case *ast.ArrayLit:
		elems, err := rt.evalArgs(x.Elems, f)
		if err != nil {
			return value.Null, err
		}
		return value.NewArray(elems...), nil
	case *ast.TupleLit:
		elems, err := rt.evalArgs(x.Elems, f)
		if err != nil {
			return value.Null, err
		}
		return value.NewTuple(elems...), nil
	case *ast.SetLit:
		elems, err := rt.evalArgs(x.Elems, f)
		if err != nil {
			return value.Null, err
		}
		return value.FromSet(value.NewSet(elems...)), nil
	case *ast.MapLit:
		return rt.evalMap(x, f)
	case *ast.Spread:
		return value.Null, rt.throwf(x.Span(), "SyntaxError", "spread is only allowed in calls and array literals")
	case *ast.FuncLit:
		cl := rt.newClosure(x.Fn, f, x.Fn.Name)
		return value.Func(cl), nil
	case *ast.ValidateExpr:
		return rt.evalValidate(x, f)
	case *ast.EmitExpr:
		return rt.evalEmit(x, f)
	case *ast.MatchExpr:
		return rt.evalMatch(x, f)
	}
	return value.Null, rt.throwf(x.Span(), "RuntimeError", "unsupported expression %T", x)
}

func literal(l *ast.Literal) value.Value {
	switch l.Kind {
	case ast.LitBool:
		return value.Bool(l.Bool)
	case ast.LitInt:
		return value.Int(int32(l.Int))
	case ast.LitLong:
		return value.Long(l.Int)
	case ast.LitShort:
		return value.Short(int16(l.Int))
	case ast.LitFloat:
		return value.Float(float32(l.Float))
	case ast.LitDouble:
		return value.Double(l.Float)
	case ast.LitChar:
		return value.Char(rune(l.Int))
	case ast.LitString:
		return value.Str(nfc(l.Str))
	}
	return value.Null
}

// nfc normalizes text to composed form so equal-looking strings compare
// and hash equal.
func nfc(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

func stepOf(op token.Kind) int64 {
	if op == token.MinusMinus {
		return -1
	}
	return 1
}

func (rt *Runtime) lookup(name string, f FrameID, sp source.Span) (value.Value, error) {
	if id, i, ok := rt.env.Lookup(f, name); ok {
		return rt.load(id, i, sp)
	}
	if v, ok := rt.builtins[name]; ok {
		return v, nil
	}
	return value.Null, rt.throwf(sp, "UndefinedVariableError", "%s is not defined", name)
}

func (rt *Runtime) load(id FrameID, i int, sp source.Span) (value.Value, error) {
	s := rt.env.slot(id, i)
	if s.ledger {
		return rt.loadLedger(rt.env.frame(id).contract, s.name, sp)
	}
	if !s.init {
		return value.Null, rt.throwf(sp, "UndefinedVariableError", "%s is used before initialization", s.name)
	}
	return s.val, nil
}

func (rt *Runtime) store(id FrameID, i int, v value.Value, sp source.Span) error {
	s := rt.env.slot(id, i)
	if s.ledger {
		return rt.storeLedger(rt.env.frame(id).contract, s.name, v, sp)
	}
	if s.kind.Immutable() && s.init {
		return rt.throwf(sp, "ImmutableAssignmentError", "cannot assign to %s %s", s.kind, s.name)
	}
	s.val, s.init = v, true
	return nil
}

func (rt *Runtime) evalUnary(x *ast.Unary, f FrameID) (value.Value, error) {
	switch x.Op {
	case token.PlusPlus, token.MinusMinus:
		r, err := rt.refOf(x.X, f)
		if err != nil {
			return value.Null, err
		}
		old, err := r.get()
		if err != nil {
			return value.Null, err
		}
		next, err := value.Step(old, stepOf(x.Op))
		if err != nil {
			return value.Null, rt.throwable(err, x.Span())
		}
		return next, r.set(next)
	}
	v, err := rt.eval(x.X, f)
	if err != nil {
		return value.Null, err
	}
	switch x.Op {
	case token.Bang:
		return value.Bool(!v.Truthy()), nil
	case token.Minus:
		n, err := value.Negate(v)
		if err != nil {
			return value.Null, rt.throwable(err, x.Span())
		}
		return n, nil
	case token.Plus:
		if !v.K.IsNumeric() {
			return value.Null, rt.typeError(x.Span(), "unary + on %s", v.TypeName())
		}
		return v, nil
	}
	return value.Null, rt.throwf(x.Span(), "SyntaxError", "unknown unary operator %s", x.Op.Lexeme())
}

func (rt *Runtime) evalBinary(x *ast.Binary, f FrameID) (value.Value, error) {
	l, err := rt.eval(x.X, f)
	if err != nil {
		return value.Null, err
	}
	switch x.Op {
	case token.AndAnd:
		if !l.Truthy() {
			return value.Bool(false), nil
		}
		r, err := rt.eval(x.Y, f)
		return value.Bool(r.Truthy()), err
	case token.OrOr:
		if l.Truthy() {
			return value.Bool(true), nil
		}
		r, err := rt.eval(x.Y, f)
		return value.Bool(r.Truthy()), err
	case token.QuestionQuestion:
		if !l.IsNull() {
			return l, nil
		}
		return rt.eval(x.Y, f)
	}
	r, err := rt.eval(x.Y, f)
	if err != nil {
		return value.Null, err
	}
	return rt.binop(x.Op, l, r, x.Span())
}

func (rt *Runtime) binop(op token.Kind, l, r value.Value, sp source.Span) (value.Value, error) {
	switch op {
	case token.EqEq:
		return value.Bool(value.Equal(l, r)), nil
	case token.BangEq:
		return value.Bool(!value.Equal(l, r)), nil
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		c, err := value.Compare(l, r)
		if err != nil {
			return value.Null, rt.throwable(err, sp)
		}
		switch op {
		case token.Lt:
			return value.Bool(c < 0), nil
		case token.LtEq:
			return value.Bool(c <= 0), nil
		case token.Gt:
			return value.Bool(c > 0), nil
		}
		return value.Bool(c >= 0), nil
	}
	v, err := value.Arith(op, l, r)
	if err != nil {
		return value.Null, rt.throwable(err, sp)
	}
	return v, nil
}

// compound maps `op=` to its binary operator.
var compound = map[token.Kind]token.Kind{
	token.PlusAssign:    token.Plus,
	token.MinusAssign:   token.Minus,
	token.StarAssign:    token.Star,
	token.SlashAssign:   token.Slash,
	token.PercentAssign: token.Percent,
}

func (rt *Runtime) evalAssign(a *ast.Assign, f FrameID) (value.Value, error) {
	r, err := rt.refOf(a.Target, f)
	if err != nil {
		return value.Null, err
	}
	if a.Op == token.Assign {
		v, err := rt.eval(a.Value, f)
		if err != nil {
			return value.Null, err
		}
		if fl, ok := a.Value.(*ast.FuncLit); ok && fl.Fn.Name == "" {
			if id, ok := a.Target.(*ast.Ident); ok {
				v.Function().(*Closure).name = id.Name
			}
		}
		return v, r.set(v)
	}
	op, ok := compound[a.Op]
	if !ok {
		return value.Null, rt.throwf(a.Span(), "SyntaxError", "unknown assignment operator %s", a.Op.Lexeme())
	}
	old, err := r.get()
	if err != nil {
		return value.Null, err
	}
	rhs, err := rt.eval(a.Value, f)
	if err != nil {
		return value.Null, err
	}
	v, err := rt.binop(op, old, rhs, a.Span())
	if err != nil {
		return value.Null, err
	}
	return v, r.set(v)
}

// ref is an assignable place.
type ref struct {
	get func() (value.Value, error)
	set func(value.Value) error
}

func (rt *Runtime) refOf(x ast.Expr, f FrameID) (ref, error) {
	sp := x.Span()
	switch t := x.(type) {
	case *ast.Paren:
		return rt.refOf(t.X, f)
	case *ast.Ident:
		id, i, ok := rt.env.Lookup(f, t.Name)
		if !ok {
			if _, builtin := rt.builtins[t.Name]; builtin {
				return ref{}, rt.throwf(sp, "ImmutableAssignmentError", "cannot assign to builtin %s", t.Name)
			}
			return ref{}, rt.throwf(sp, "UndefinedVariableError", "%s is not defined", t.Name)
		}
		return ref{
			get: func() (value.Value, error) { return rt.load(id, i, sp) },
			set: func(v value.Value) error { return rt.store(id, i, v, sp) },
		}, nil
	case *ast.Member:
		if _, ok := t.X.(*ast.SuperExpr); ok {
			return ref{}, rt.throwf(sp, "SyntaxError", "cannot assign through super")
		}
		if err := rt.guardLedgerWrite(t.X, f, sp); err != nil {
			return ref{}, err
		}
		recv, err := rt.eval(t.X, f)
		if err != nil {
			return ref{}, err
		}
		return ref{
			get: func() (value.Value, error) { return rt.member(recv, t.Name, sp) },
			set: func(v value.Value) error { return rt.setMember(recv, t.Name, v, f, sp) },
		}, nil
	case *ast.Index:
		if err := rt.guardLedgerWrite(t.X, f, sp); err != nil {
			return ref{}, err
		}
		recv, err := rt.eval(t.X, f)
		if err != nil {
			return ref{}, err
		}
		idx, err := rt.eval(t.Index, f)
		if err != nil {
			return ref{}, err
		}
		return ref{
			get: func() (value.Value, error) { return rt.index(recv, idx, sp) },
			set: func(v value.Value) error { return rt.setIndex(recv, idx, v, sp) },
		}, nil
	}
	return ref{}, rt.throwf(sp, "SyntaxError", "invalid assignment target")
}

// callTarget evaluates the callee and arguments of a call. skip is set
// when optional chaining short-circuits on a null receiver.
func (rt *Runtime) callTarget(c *ast.Call, f FrameID) (callee value.Value, args []value.Value, skip bool, err error) {
	if _, ok := c.Fn.(*ast.SuperExpr); ok {
		args, err = rt.evalArgs(c.Args, f)
		if err != nil {
			return value.Null, nil, false, err
		}
		return value.Null, nil, true, rt.superCall(f, args, c.Span())
	}
	if m, ok := c.Fn.(*ast.Member); ok {
		if _, sup := m.X.(*ast.SuperExpr); sup {
			callee, err = rt.superMember(f, m.Name, m.Span())
		} else {
			var recv value.Value
			recv, err = rt.eval(m.X, f)
			if err != nil {
				return value.Null, nil, false, err
			}
			if recv.IsNull() && (m.Optional || c.Optional) {
				return value.Null, nil, true, nil
			}
			callee, err = rt.member(recv, m.Name, m.Span())
		}
	} else {
		callee, err = rt.eval(c.Fn, f)
	}
	if err != nil {
		return value.Null, nil, false, err
	}
	args, err = rt.evalArgs(c.Args, f)
	return callee, args, false, err
}

func (rt *Runtime) evalMap(x *ast.MapLit, f FrameID) (value.Value, error) {
	m := value.NewMap()
	for _, e := range x.Entries {
		var k value.Value
		if id, ok := e.Key.(*ast.Ident); ok {
			k = value.Str(id.Name)
		} else {
			var err error
			if k, err = rt.eval(e.Key, f); err != nil {
				return value.Null, err
			}
		}
		v, err := rt.eval(e.Value, f)
		if err != nil {
			return value.Null, err
		}
		m.Set(k, v)
	}
	return value.FromMap(m), nil
}

// isType implements `x is T`.
func (rt *Runtime) isType(v value.Value, t *ast.TypeRef, f FrameID) bool {
	if t.Array > 0 {
		return v.K == value.KindArray
	}
	switch t.Name {
	case "any":
		return true
	case "Error":
		return v.Object() != nil && v.Object().Class.IsError()
	}
	if k, ok := value.KindByName(t.Name); ok {
		return v.K == k
	}
	if id, i, ok := rt.env.Lookup(f, t.Name); ok {
		if cv := rt.env.slot(id, i).val; cv.K == value.KindClass {
			return rt.isInstance(v, cv)
		}
	}
	if k, ok := value.KindByName(strings.ToLower(t.Name)); ok {
		return v.K == k
	}
	if o := v.Object(); o != nil {
		return o.Class.HasAncestor(t.Name)
	}
	return false
}

func (rt *Runtime) await(v value.Value, sp source.Span) (value.Value, error) {
	if v.K != value.KindTask {
		return v, nil
	}
	t := rt.taskOf(v)
	rt.observed[t] = true
	res, err := rt.sched.Await(t)
	if err != nil {
		return value.Null, rt.throwable(err, sp)
	}
	return fromAny(res), nil
}

func (rt *Runtime) evalSpawn(x *ast.SpawnExpr, f FrameID) (value.Value, error) {
	sp := x.Span()
	if c, ok := x.X.(*ast.Call); ok {
		callee, args, skip, err := rt.callTarget(c, f)
		if err != nil {
			return value.Null, err
		}
		if skip {
			return value.Null, nil
		}
		name := "spawn"
		if fn := callee.Function(); fn != nil {
			name = fn.Name()
		}
		t := rt.spawn(name, func() (value.Value, error) {
			v, err := rt.callValue(callee, args, sp)
			if err != nil {
				return value.Null, err
			}
			// async-функция уже вернула задачу: ждём её
			return rt.await(v, sp)
		})
		return value.Handle(value.KindTask, t), nil
	}
	rt.env.Retain(f)
	t := rt.spawn("spawn", func() (value.Value, error) {
		defer rt.env.Release(f)
		return rt.eval(x.X, f)
	})
	return value.Handle(value.KindTask, t), nil
}

func (rt *Runtime) evalMatch(m *ast.MatchExpr, f FrameID) (value.Value, error) {
	subj, err := rt.eval(m.Subject, f)
	if err != nil {
		return value.Null, err
	}
	for _, arm := range m.Arms {
		if arm.Pattern != nil {
			ok, err := rt.matchArm(subj, arm.Pattern, f)
			if err != nil {
				return value.Null, err
			}
			if !ok {
				continue
			}
		}
		if arm.Block != nil {
			return rt.blockValue(arm.Block, f)
		}
		return rt.eval(arm.Body, f)
	}
	return value.Null, nil
}

// matchArm compares the subject with a pattern: classes match instances,
// bare kind names (int, string...) match by tag, anything else by ==.
func (rt *Runtime) matchArm(subj value.Value, pat ast.Expr, f FrameID) (bool, error) {
	if id, ok := pat.(*ast.Ident); ok {
		if _, _, bound := rt.env.Lookup(f, id.Name); !bound {
			if k, ok := value.KindByName(id.Name); ok {
				return subj.K == k, nil
			}
		}
	}
	p, err := rt.eval(pat, f)
	if err != nil {
		return false, err
	}
	if p.K == value.KindClass {
		return rt.isInstance(subj, p), nil
	}
	return value.Equal(subj, p), nil
}

// blockValue runs a match arm block; its value is the trailing expression
// statement, if any.
func (rt *Runtime) blockValue(b *ast.Block, f FrameID) (value.Value, error) {
	child := rt.env.Push(f, false)
	defer rt.env.Release(child)
	for i, s := range b.Stmts {
		if es, ok := s.(*ast.ExprStmt); ok && i == len(b.Stmts)-1 {
			return rt.eval(es.X, child)
		}
		ctl, err := rt.execStmt(s, child)
		if err != nil {
			return value.Null, err
		}
		if ctl.kind != ctlNone {
			return value.Null, &ctlEscape{ctl: ctl, sp: s.Span()}
		}
	}
	return value.Null, nil
}

func fromAny(x any) value.Value {
	if v, ok := x.(value.Value); ok {
		return v
	}
	return value.Null
}

func (rt *Runtime) taskOf(v value.Value) *sched.Task { return v.Ref().(*sched.Task) }

func (rt *Runtime) lockOf(v value.Value) *sched.Lock { return v.Ref().(*sched.Lock) }

func (rt *Runtime) semaphoreOf(v value.Value) *sched.Semaphore { return v.Ref().(*sched.Semaphore) }

func (rt *Runtime) channelOf(v value.Value) *sched.Channel { return v.Ref().(*sched.Channel) }

func (rt *Runtime) barrierOf(v value.Value) *sched.Barrier { return v.Ref().(*sched.Barrier) }
