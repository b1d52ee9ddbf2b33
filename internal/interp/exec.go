package interp

import (
	"errors"

	"gard/internal/ast"
	"gard/internal/source"
	"gard/internal/value"
)

type ctlKind uint8

const (
	ctlNone ctlKind = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

// control is how a statement finished.
type control struct {
	kind ctlKind
	val  value.Value
}

var normal = control{}

// ctlEscape carries break/continue/return out of a block nested in an
// expression (match arms) back to the enclosing statement.
type ctlEscape struct {
	ctl control
	sp  source.Span
}

func (e *ctlEscape) Error() string { return "control transfer outside a statement" }

// execModule runs the top level of a file in frame fid. Names of `export`
// declarations are copied into exports when it is non-nil. The result is
// the value of the last expression statement.
func (rt *Runtime) execModule(file *ast.File, fid FrameID, exports *value.Map) (value.Value, error) {
	last := value.Null
	for _, item := range file.Items {
		if es, ok := item.(*ast.ExprStmt); ok {
			v, err := rt.eval(es.X, fid)
			if err != nil {
				return value.Null, rt.topLevel(err, es.Span())
			}
			last = v
			continue
		}
		ctl, err := rt.execStmt(item, fid)
		if err != nil {
			return value.Null, rt.topLevel(err, item.Span())
		}
		switch ctl.kind {
		case ctlReturn:
			return ctl.val, nil
		case ctlBreak, ctlContinue:
			return value.Null, rt.throwf(item.Span(), "SyntaxError", "break or continue outside a loop")
		}
		if ex, ok := item.(*ast.ExportDecl); ok && exports != nil {
			name := ast.DeclName(ex.Decl)
			if id, i, found := rt.env.Lookup(fid, name); found {
				exports.Set(value.Str(name), rt.env.slot(id, i).val)
			}
		}
	}
	return last, nil
}

func (rt *Runtime) topLevel(err error, sp source.Span) error {
	var esc *ctlEscape
	if errors.As(err, &esc) {
		if esc.ctl.kind == ctlReturn {
			return nil
		}
		return rt.throwf(esc.sp, "SyntaxError", "break or continue outside a loop")
	}
	return rt.throwable(err, sp)
}

// execBlock runs b in a fresh child frame of f.
func (rt *Runtime) execBlock(b *ast.Block, f FrameID) (control, error) {
	if b == nil {
		return normal, nil
	}
	child := rt.env.Push(f, false)
	defer rt.env.Release(child)
	return rt.execBlockIn(b.Stmts, child)
}

// execBlockIn runs stmts directly in frame f.
func (rt *Runtime) execBlockIn(stmts []ast.Stmt, f FrameID) (control, error) {
	for _, s := range stmts {
		ctl, err := rt.execStmt(s, f)
		if err != nil || ctl.kind != ctlNone {
			return ctl, err
		}
	}
	return normal, nil
}

func (rt *Runtime) execStmt(s ast.Stmt, f FrameID) (control, error) {
	ctl, err := rt.execNode(s, f)
	var esc *ctlEscape
	if errors.As(err, &esc) {
		return esc.ctl, nil
	}
	return ctl, err
}

func (rt *Runtime) execNode(s ast.Stmt, f FrameID) (control, error) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		_, err := rt.eval(s.X, f)
		return normal, err
	case *ast.VarDecl:
		return normal, rt.execVarDecl(s, f)
	case *ast.FuncDecl:
		cl := rt.newClosure(s.Fn, f, s.Fn.Name)
		cl.mods = s.Mods
		if !rt.env.Declare(f, s.Fn.Name, ast.DeclLet, value.Func(cl), true) {
			return normal, rt.throwf(s.Span(), "SyntaxError", "%s is already declared in this scope", s.Fn.Name)
		}
		return normal, nil
	case *ast.ClassDecl:
		_, err := rt.declareClass(s, f)
		return normal, err
	case *ast.InterfaceDecl:
		return normal, rt.declareInterface(s, f)
	case *ast.ContractDecl:
		return normal, rt.declareContract(s, f)
	case *ast.ImportDecl:
		return normal, rt.importModule(s, f)
	case *ast.ExportDecl:
		return rt.execStmt(s.Decl, f)
	case *ast.Block:
		return rt.execBlock(s, f)
	case *ast.If:
		c, err := rt.eval(s.Cond, f)
		if err != nil {
			return normal, err
		}
		if c.Truthy() {
			return rt.execScoped(s.Then, f)
		}
		if s.Else != nil {
			return rt.execScoped(s.Else, f)
		}
		return normal, nil
	case *ast.While:
		return rt.execWhile(s, f)
	case *ast.DoWhile:
		return rt.execDoWhile(s, f)
	case *ast.For:
		return rt.execFor(s, f)
	case *ast.ForEach:
		return rt.execForEach(s, f)
	case *ast.Switch:
		return rt.execSwitch(s, f)
	case *ast.Try:
		return rt.execTry(s, f)
	case *ast.Throw:
		v, err := rt.eval(s.X, f)
		if err != nil {
			return normal, err
		}
		return normal, &Thrown{Value: v, Span: s.Span()}
	case *ast.Return:
		if s.X == nil {
			return control{kind: ctlReturn, val: value.Null}, nil
		}
		v, err := rt.eval(s.X, f)
		if err != nil {
			return normal, err
		}
		return control{kind: ctlReturn, val: v}, nil
	case *ast.Break:
		return control{kind: ctlBreak}, nil
	case *ast.Continue:
		return control{kind: ctlContinue}, nil
	case *ast.LockStmt:
		return rt.execLock(s, f)
	case *ast.Unlock:
		return normal, rt.execUnlock(s, f)
	case *ast.Transfer:
		return normal, rt.execTransfer(s, f)
	}
	return normal, rt.throwf(s.Span(), "RuntimeError", "unsupported statement %T", s)
}

// execScoped gives a non-block branch body its own frame, so a declaration
// there does not leak into the enclosing block.
func (rt *Runtime) execScoped(s ast.Stmt, f FrameID) (control, error) {
	if b, ok := s.(*ast.Block); ok {
		return rt.execBlock(b, f)
	}
	child := rt.env.Push(f, false)
	defer rt.env.Release(child)
	return rt.execStmt(s, child)
}

func (rt *Runtime) execVarDecl(d *ast.VarDecl, f FrameID) error {
	v := value.Null
	if d.Init != nil {
		var err error
		if v, err = rt.eval(d.Init, f); err != nil {
			return err
		}
		if fl, ok := d.Init.(*ast.FuncLit); ok && fl.Fn.Name == "" {
			if cl, ok := v.Function().(*Closure); ok {
				cl.name = d.Name
			}
		}
	}
	v = coerceParam(d.Type, v)
	target := f
	if d.Kind == ast.DeclVar {
		target = rt.env.FuncFrame(f)
	}
	if !rt.env.Declare(target, d.Name, d.Kind, v, true) {
		return rt.throwf(d.Span(), "SyntaxError", "%s is already declared in this scope", d.Name)
	}
	return nil
}

// loopStep folds a body's control into the loop: done reports that the loop
// must stop and out is what it returns.
func loopStep(ctl control) (out control, done bool) {
	switch ctl.kind {
	case ctlBreak:
		return normal, true
	case ctlReturn:
		return ctl, true
	}
	return normal, false
}

func (rt *Runtime) execWhile(s *ast.While, f FrameID) (control, error) {
	for {
		c, err := rt.eval(s.Cond, f)
		if err != nil {
			return normal, err
		}
		if !c.Truthy() {
			return normal, nil
		}
		ctl, err := rt.execScoped(s.Body, f)
		if err != nil {
			return normal, err
		}
		if out, done := loopStep(ctl); done {
			return out, nil
		}
	}
}

func (rt *Runtime) execDoWhile(s *ast.DoWhile, f FrameID) (control, error) {
	for {
		ctl, err := rt.execScoped(s.Body, f)
		if err != nil {
			return normal, err
		}
		if out, done := loopStep(ctl); done {
			return out, nil
		}
		c, err := rt.eval(s.Cond, f)
		if err != nil {
			return normal, err
		}
		if !c.Truthy() {
			return normal, nil
		}
	}
}

func (rt *Runtime) execFor(s *ast.For, f FrameID) (control, error) {
	loop := rt.env.Push(f, false)
	defer func() { rt.env.Release(loop) }()
	if s.Init != nil {
		if _, err := rt.execStmt(s.Init, loop); err != nil {
			return normal, err
		}
	}
	for {
		if s.Cond != nil {
			c, err := rt.eval(s.Cond, loop)
			if err != nil {
				return normal, err
			}
			if !c.Truthy() {
				return normal, nil
			}
		}
		ctl, err := rt.execScoped(s.Body, loop)
		if err != nil {
			return normal, err
		}
		if out, done := loopStep(ctl); done {
			return out, nil
		}
		// замкнувшиеся на счётчик функции видят значение своей итерации
		loop = rt.env.renew(loop)
		if s.Post != nil {
			if _, err := rt.eval(s.Post, loop); err != nil {
				return normal, err
			}
		}
	}
}

func (rt *Runtime) execForEach(s *ast.ForEach, f FrameID) (control, error) {
	iter, err := rt.eval(s.Iter, f)
	if err != nil {
		return normal, err
	}
	body := func(v value.Value) (control, bool, error) {
		fr := rt.env.Push(f, false)
		defer rt.env.Release(fr)
		rt.env.Declare(fr, s.Name, s.Kind, v, true)
		ctl, err := rt.execScoped(s.Body, fr)
		if err != nil {
			return normal, true, err
		}
		out, done := loopStep(ctl)
		return out, done, nil
	}
	// канал читается до закрытия
	if iter.K == value.KindChannel {
		ch := rt.channelOf(iter)
		for {
			v, ok, err := ch.Recv()
			if err != nil {
				return normal, rt.throwable(err, s.Span())
			}
			if !ok {
				return normal, nil
			}
			out, done, err := body(fromAny(v))
			if done || err != nil {
				return out, err
			}
		}
	}
	elems, err := rt.iterate(iter, s.Iter.Span())
	if err != nil {
		return normal, err
	}
	for _, v := range elems {
		out, done, err := body(v)
		if done || err != nil {
			return out, err
		}
	}
	return normal, nil
}

// iterate snapshots the elements a foreach or spread walks over.
func (rt *Runtime) iterate(v value.Value, sp source.Span) ([]value.Value, error) {
	switch v.K {
	case value.KindArray:
		return append([]value.Value(nil), v.Array().Elems...), nil
	case value.KindTuple:
		return v.Tuple().Elems(), nil
	case value.KindSet:
		return v.Set().Items(), nil
	case value.KindMap:
		return v.Map().Keys(), nil
	case value.KindString:
		var out []value.Value
		for _, r := range v.Text() {
			out = append(out, value.Char(r))
		}
		return out, nil
	}
	return nil, rt.typeError(sp, "%s is not iterable", v.TypeName())
}

// execSwitch picks the first case equal to the tag, or default. Cases do
// not fall through; break leaves the switch.
func (rt *Runtime) execSwitch(s *ast.Switch, f FrameID) (control, error) {
	tag, err := rt.eval(s.Tag, f)
	if err != nil {
		return normal, err
	}
	var pick *ast.CaseClause
	for _, c := range s.Cases {
		if c.Value == nil {
			if pick == nil {
				pick = c
			}
			continue
		}
		v, err := rt.eval(c.Value, f)
		if err != nil {
			return normal, err
		}
		if value.Equal(tag, v) {
			pick = c
			break
		}
	}
	if pick == nil {
		return normal, nil
	}
	child := rt.env.Push(f, false)
	defer rt.env.Release(child)
	ctl, err := rt.execBlockIn(pick.Body, child)
	if ctl.kind == ctlBreak {
		ctl = normal
	}
	return ctl, err
}

// execTry: finally runs on every exit path; an error or control transfer
// raised by finally replaces whatever was in flight.
func (rt *Runtime) execTry(s *ast.Try, f FrameID) (control, error) {
	ctl, err := rt.execBlock(s.Body, f)
	if err != nil && !isEscape(err) {
		th := rt.throwable(err, s.Body.Span())
		err = th
		for _, c := range s.Catches {
			name := ""
			if c.Type != nil {
				name = c.Type.Name
			}
			if !rt.catches(name, th.Value, f) {
				continue
			}
			ctl, err = rt.execCatch(c, th, f)
			break
		}
	}
	if s.Finally != nil {
		fctl, ferr := rt.execBlock(s.Finally, f)
		if ferr != nil {
			return normal, ferr
		}
		if fctl.kind != ctlNone {
			return fctl, nil
		}
	}
	return ctl, err
}

func isEscape(err error) bool {
	var esc *ctlEscape
	return errors.As(err, &esc)
}

// catches matches a catch type: built-in kinds and error classes by name,
// user classes and interfaces through the scope.
func (rt *Runtime) catches(name string, v value.Value, f FrameID) bool {
	if catchMatches(name, v) {
		return true
	}
	if v.Object() == nil {
		return false
	}
	if id, i, ok := rt.env.Lookup(f, name); ok {
		if t := rt.env.slot(id, i).val; t.K == value.KindClass {
			return rt.isInstance(v, t)
		}
	}
	return false
}

func (rt *Runtime) execCatch(c *ast.CatchClause, th *Thrown, f FrameID) (control, error) {
	child := rt.env.Push(f, false)
	defer rt.env.Release(child)
	if c.Name != "" {
		rt.env.Declare(child, c.Name, ast.DeclLet, th.Value, true)
	}
	return rt.execBlockIn(c.Body.Stmts, child)
}

// execLock holds a Mutex (or a Semaphore permit) for the body and releases
// it on every exit path.
func (rt *Runtime) execLock(s *ast.LockStmt, f FrameID) (control, error) {
	v, err := rt.eval(s.Target, f)
	if err != nil {
		return normal, err
	}
	switch v.K {
	case value.KindLock:
		l := rt.lockOf(v)
		if err := l.Acquire(); err != nil {
			return normal, rt.throwable(err, s.Span())
		}
		defer l.Release()
	case value.KindSemaphore:
		m := rt.semaphoreOf(v)
		if err := m.Acquire(); err != nil {
			return normal, rt.throwable(err, s.Span())
		}
		defer m.Release()
	default:
		return normal, rt.typeError(s.Target.Span(), "lock expects a Mutex, got %s", v.TypeName())
	}
	return rt.execBlock(s.Body, f)
}

func (rt *Runtime) execUnlock(s *ast.Unlock, f FrameID) error {
	v, err := rt.eval(s.Target, f)
	if err != nil {
		return err
	}
	switch v.K {
	case value.KindLock:
		rt.lockOf(v).Release()
	case value.KindSemaphore:
		rt.semaphoreOf(v).Release()
	default:
		return rt.typeError(s.Target.Span(), "unlock expects a Mutex, got %s", v.TypeName())
	}
	return nil
}
