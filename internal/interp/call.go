package interp

import (
	"errors"

	"gard/internal/ast"
	"gard/internal/source"
	"gard/internal/value"
)

// Closure is a Gard function together with the frame it was created in.
type Closure struct {
	fn   *ast.Function
	env  FrameID
	name string
	mods ast.Modifiers

	// bound methods
	this    value.Value
	hasThis bool
	home    *value.Class
	ctor    bool
	// base keeps the capturing closure (and its frame reference) alive
	// while bound copies are in use
	base *Closure
}

func (c *Closure) Name() string {
	if c.name == "" {
		return "<anonymous>"
	}
	return c.name
}

// NativeFunc is the Go signature of a builtin.
type NativeFunc func(rt *Runtime, args []value.Value, sp source.Span) (value.Value, error)

// Native is a builtin function value.
type Native struct {
	name string
	fn   NativeFunc
}

func (n *Native) Name() string { return n.name }

// boundNative is a builtin method of a receiver (string, array, handle...).
type boundNative struct {
	recv value.Value
	name string
	fn   func(rt *Runtime, recv value.Value, args []value.Value, sp source.Span) (value.Value, error)
}

func (b *boundNative) Name() string { return b.recv.TypeName() + "." + b.name }

func (rt *Runtime) newClosure(fn *ast.Function, env FrameID, name string) *Closure {
	c := &Closure{fn: fn, env: env, name: name}
	rt.env.capture(c, env)
	return c
}

// bind returns a copy of c with a receiver.
func (c *Closure) bind(this value.Value, home *value.Class) *Closure {
	b := *c
	b.this, b.hasThis, b.home = this, true, home
	if c.base != nil {
		b.base = c.base
	} else {
		b.base = c
	}
	return &b
}

// callValue calls any callable value.
func (rt *Runtime) callValue(callee value.Value, args []value.Value, sp source.Span) (value.Value, error) {
	switch callee.K {
	case value.KindFunction:
		switch fn := callee.Function().(type) {
		case *Closure:
			return rt.callClosure(fn, args, sp)
		case *Native:
			return fn.fn(rt, args, sp)
		case *boundNative:
			return fn.fn(rt, fn.recv, args, sp)
		case *contractMethod:
			return rt.callContract(fn.addr, fn.name, args, sp)
		}
	case value.KindClass:
		return value.Null, rt.typeError(sp, "class %s must be instantiated with new", callee.Class().Name)
	}
	return value.Null, rt.typeError(sp, "%s is not callable", callee.TypeName())
}

// callClosure runs c; async functions start a task and return its handle.
func (rt *Runtime) callClosure(c *Closure, args []value.Value, sp source.Span) (value.Value, error) {
	if c.fn.Async || c.mods.Has(ast.ModAsync) {
		t := rt.spawn(c.Name(), func() (value.Value, error) {
			return rt.invoke(c, args, sp)
		})
		return value.Handle(value.KindTask, t), nil
	}
	return rt.invoke(c, args, sp)
}

// invoke runs c synchronously in the current task.
func (rt *Runtime) invoke(c *Closure, args []value.Value, sp source.Span) (value.Value, error) {
	tc := rt.ctx()
	if tc.depth >= rt.depth {
		return value.Null, rt.throwf(sp, "RuntimeError", "stack overflow in %s", c.Name())
	}
	tc.depth++
	defer func() { tc.depth-- }()

	f := rt.env.Push(c.env, true)
	defer rt.env.Release(f)
	if c.hasThis {
		fr := rt.env.frame(f)
		fr.this, fr.hasThis, fr.home, fr.ctor = c.this, true, c.home, c.ctor
	}
	if err := rt.bindParams(c, args, f, sp); err != nil {
		return value.Null, err
	}
	if c.fn.Expr != nil {
		v, err := rt.eval(c.fn.Expr, f)
		var esc *ctlEscape
		if errors.As(err, &esc) {
			if esc.ctl.kind == ctlReturn {
				return esc.ctl.val, nil
			}
			return value.Null, rt.throwf(esc.sp, "SyntaxError", "break or continue outside a loop")
		}
		return v, err
	}
	if c.fn.Body == nil {
		return value.Null, rt.throwf(sp, "AbstractMethodError", "%s has no body", c.Name())
	}
	ctl, err := rt.execBlockIn(c.fn.Body.Stmts, f)
	if err != nil {
		return value.Null, err
	}
	if ctl.kind == ctlReturn {
		return ctl.val, nil
	}
	return value.Null, nil
}

func (rt *Runtime) bindParams(c *Closure, args []value.Value, f FrameID, sp source.Span) error {
	for i, p := range c.fn.Params {
		switch {
		case p.Rest:
			var rest []value.Value
			if i < len(args) {
				rest = append(rest, args[i:]...)
			}
			rt.env.Declare(f, p.Name, ast.DeclLet, value.NewArray(rest...), true)
		case p.Destructured():
			src := value.Null
			if i < len(args) {
				src = args[i]
			}
			if err := rt.bindFields(c, p, src, f, sp); err != nil {
				return err
			}
		default:
			v := value.Null
			switch {
			case i < len(args):
				v = args[i]
			case p.Default != nil:
				d, err := rt.eval(p.Default, f)
				if err != nil {
					return err
				}
				v = d
			}
			v = coerceParam(p.Type, v)
			if !rt.env.Declare(f, p.Name, ast.DeclLet, v, true) {
				return rt.throwf(p.Span(), "SyntaxError", "duplicate parameter %s", p.Name)
			}
		}
	}
	return nil
}

// bindFields binds an object-destructuring parameter `{a, b = 1}` from a
// map or object argument.
func (rt *Runtime) bindFields(c *Closure, p *ast.Param, src value.Value, f FrameID, sp source.Span) error {
	if m := src.Map(); m != nil {
		for _, k := range m.Keys() {
			known := false
			for _, fld := range p.Fields {
				if k.K == value.KindString && k.Text() == fld.Name {
					known = true
					break
				}
			}
			if !known {
				return rt.throwf(sp, "SyntaxError", "unknown named argument %s in call to %s", k.Repr(), c.Name())
			}
		}
	}
	for _, fld := range p.Fields {
		v, ok := fieldOf(src, fld.Name)
		if !ok && fld.Default != nil {
			d, err := rt.eval(fld.Default, f)
			if err != nil {
				return err
			}
			v = d
		}
		rt.env.Declare(f, fld.Name, ast.DeclLet, coerceParam(fld.Type, v), true)
	}
	return nil
}

func fieldOf(src value.Value, name string) (value.Value, bool) {
	switch src.K {
	case value.KindMap:
		return src.Map().Get(value.Str(name))
	case value.KindObject:
		return src.Object().Get(name)
	}
	return value.Null, false
}

// coerceParam widens numbers to a declared numeric parameter type.
func coerceParam(t *ast.TypeRef, v value.Value) value.Value {
	if t == nil || t.Array > 0 || !v.K.IsNumeric() {
		return v
	}
	k, ok := value.KindByName(t.Name)
	if !ok || !k.IsNumeric() || k == v.K {
		return v
	}
	if c, err := value.Convert(v, k); err == nil {
		return c
	}
	return v
}

// evalArgs evaluates call arguments, expanding spreads.
func (rt *Runtime) evalArgs(xs []ast.Expr, f FrameID) ([]value.Value, error) {
	args := make([]value.Value, 0, len(xs))
	for _, x := range xs {
		if s, ok := x.(*ast.Spread); ok {
			v, err := rt.eval(s.X, f)
			if err != nil {
				return nil, err
			}
			elems, err := rt.iterate(v, s.Span())
			if err != nil {
				return nil, err
			}
			args = append(args, elems...)
			continue
		}
		v, err := rt.eval(x, f)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
