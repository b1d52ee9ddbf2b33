package interp

import (
	"strings"

	"gard/internal/ast"
	"gard/internal/source"
	"gard/internal/value"
)

// classInfo is the interpreter side of a value.Class.
type classInfo struct {
	decl   *ast.ClassDecl
	fields []*ast.FieldDecl
	env    FrameID
	ctor   *Closure
	// nativeCtor initializes built-in classes (Error and its subclasses)
	nativeCtor func(rt *Runtime, this *value.Object, args []value.Value) error
	contract   *contractInfo
	iface      *ast.InterfaceDecl
}

func infoOf(c *value.Class) *classInfo {
	if c == nil {
		return nil
	}
	info, _ := c.Data.(*classInfo)
	return info
}

// declareClass evaluates a class declaration in frame f.
func (rt *Runtime) declareClass(d *ast.ClassDecl, f FrameID) (*value.Class, error) {
	var super *value.Class
	if d.Super != "" {
		sv, err := rt.lookup(d.Super, f, d.Span())
		if err != nil {
			return nil, err
		}
		if sv.K != value.KindClass || infoOf(sv.Class()) != nil && infoOf(sv.Class()).iface != nil {
			return nil, rt.typeError(d.Span(), "%s extends %s, which is not a class", d.Name, d.Super)
		}
		super = sv.Class()
	}
	c := value.NewClass(d.Name, super)
	c.Abstract = d.Mods.Has(ast.ModAbstract)
	c.Event = d.IsEvent()
	c.Interfaces = d.Implements
	info := &classInfo{decl: d, env: f}
	c.Data = info
	retainFor(rt.env, info, f)

	for _, fd := range d.Fields {
		if !fd.Mods.Has(ast.ModStatic) {
			info.fields = append(info.fields, fd)
		}
	}
	if d.Ctor != nil {
		info.ctor = rt.newClosure(d.Ctor, f, d.Name+".constructor")
		info.ctor.ctor = true
		info.ctor.home = c
	}
	for _, md := range d.Methods {
		rt.addMethod(c, md, f)
	}
	// класс виден своим статическим инициализаторам
	if !rt.env.Declare(f, d.Name, ast.DeclConst, value.FromClass(c), true) {
		return nil, rt.throwf(d.Span(), "SyntaxError", "%s is already declared", d.Name)
	}
	for _, fd := range d.Fields {
		if !fd.Mods.Has(ast.ModStatic) {
			continue
		}
		v := value.Null
		if fd.Init != nil {
			var err error
			if v, err = rt.eval(fd.Init, f); err != nil {
				return nil, err
			}
		}
		c.Statics.Set(value.Str(fd.Name), v)
	}
	if !c.Abstract {
		if err := rt.checkInterfaces(c, f, d.Span()); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (rt *Runtime) addMethod(c *value.Class, md *ast.MethodDecl, f FrameID) {
	m := &value.Method{
		Name:     md.Fn.Name,
		Static:   md.Mods.Has(ast.ModStatic),
		Abstract: md.Mods.Has(ast.ModAbstract) || md.Fn.Body == nil && md.Fn.Expr == nil,
		ReadOnly: md.Mods.ReadOnly(),
		Async:    md.Fn.Async || md.Mods.Has(ast.ModAsync),
	}
	if !m.Abstract {
		cl := rt.newClosure(md.Fn, f, c.Name+"."+md.Fn.Name)
		cl.mods = md.Mods
		cl.home = c
		m.Fn = cl
	}
	c.AddMethod(m)
}

// declareInterface binds an interface as a class value with no methods of
// its own; `is` and `implements` consult its member list.
func (rt *Runtime) declareInterface(d *ast.InterfaceDecl, f FrameID) error {
	c := value.NewClass(d.Name, nil)
	c.Abstract = true
	info := &classInfo{iface: d, env: f}
	c.Data = info
	retainFor(rt.env, info, f)
	if !rt.env.Declare(f, d.Name, ast.DeclConst, value.FromClass(c), true) {
		return rt.throwf(d.Span(), "SyntaxError", "%s is already declared", d.Name)
	}
	return nil
}

// interfaceMethods collects method members of an interface and the
// interfaces it extends.
func (rt *Runtime) interfaceMethods(name string, f FrameID, sp source.Span, seen map[string]bool) ([]string, error) {
	if seen[name] {
		return nil, nil
	}
	seen[name] = true
	v, err := rt.lookup(name, f, sp)
	if err != nil {
		return nil, err
	}
	info := infoOf(v.Class())
	if v.K != value.KindClass || info == nil || info.iface == nil {
		return nil, rt.typeError(sp, "%s is not an interface", name)
	}
	var out []string
	for _, m := range info.iface.Members {
		if m.Method {
			out = append(out, m.Name)
		}
	}
	for _, ext := range info.iface.Extends {
		more, err := rt.interfaceMethods(ext, info.env, sp, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func (rt *Runtime) checkInterfaces(c *value.Class, f FrameID, sp source.Span) error {
	for _, k := range c.Chain {
		for _, name := range k.Interfaces {
			methods, err := rt.interfaceMethods(name, f, sp, map[string]bool{})
			if err != nil {
				return err
			}
			var missing []string
			for _, m := range methods {
				if slot := c.Lookup(m); slot == nil || slot.Abstract {
					missing = append(missing, m)
				}
			}
			if len(missing) > 0 {
				return rt.typeError(sp, "class %s does not implement %s: missing %s", c.Name, name, strings.Join(missing, ", "))
			}
		}
	}
	return nil
}

// implements reports whether c declares iface directly, through a
// superclass or through interface extension.
func (rt *Runtime) implements(c *value.Class, iface *value.Class) bool {
	target := iface.Name
	for _, k := range c.Chain {
		info := infoOf(k)
		for _, name := range k.Interfaces {
			if name == target {
				return true
			}
			if info == nil {
				continue
			}
			if v, err := rt.lookup(name, info.env, source.Span{}); err == nil && v.K == value.KindClass {
				if ii := infoOf(v.Class()); ii != nil && ii.iface != nil && rt.extendsIface(ii, target, map[string]bool{}) {
					return true
				}
			}
		}
	}
	return false
}

func (rt *Runtime) extendsIface(ii *classInfo, target string, seen map[string]bool) bool {
	for _, ext := range ii.iface.Extends {
		if ext == target {
			return true
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		v, err := rt.lookup(ext, ii.env, source.Span{})
		if err != nil || v.K != value.KindClass {
			continue
		}
		if next := infoOf(v.Class()); next != nil && next.iface != nil && rt.extendsIface(next, target, seen) {
			return true
		}
	}
	return false
}

// instantiate implements `new C(args)`.
func (rt *Runtime) instantiate(c *value.Class, args []value.Value, sp source.Span) (value.Value, error) {
	info := infoOf(c)
	if info != nil && info.iface != nil {
		return value.Null, rt.typeError(sp, "cannot instantiate interface %s", c.Name)
	}
	if info != nil && info.contract != nil {
		return rt.deploy(c, args, sp)
	}
	if c.Abstract {
		return value.Null, rt.typeError(sp, "cannot instantiate abstract class %s", c.Name)
	}
	o := value.NewObject(c)
	this := value.FromObject(o)
	// поля инициализируются от корня к листу
	for i := len(c.Chain) - 1; i >= 0; i-- {
		if err := rt.initFields(c.Chain[i], o, this); err != nil {
			return value.Null, err
		}
	}
	if err := rt.construct(c, o, this, args, sp); err != nil {
		return value.Null, err
	}
	return this, nil
}

func (rt *Runtime) initFields(k *value.Class, o *value.Object, this value.Value) error {
	info := infoOf(k)
	if info == nil || len(info.fields) == 0 {
		return nil
	}
	f := rt.env.Push(info.env, true)
	defer rt.env.Release(f)
	fr := rt.env.frame(f)
	fr.this, fr.hasThis, fr.home, fr.ctor = this, true, k, true
	for _, fd := range info.fields {
		v := value.Null
		if fd.Init != nil {
			var err error
			if v, err = rt.eval(fd.Init, f); err != nil {
				return err
			}
		}
		o.Set(fd.Name, v)
		if fd.Mods.Has(ast.ModReadonly) {
			o.MarkReadonly(fd.Name)
		}
	}
	return nil
}

// construct runs the nearest constructor found from c upward.
func (rt *Runtime) construct(c *value.Class, o *value.Object, this value.Value, args []value.Value, sp source.Span) error {
	for _, k := range c.Chain {
		info := infoOf(k)
		if info == nil {
			continue
		}
		switch {
		case info.ctor != nil:
			_, err := rt.invoke(info.ctor.bindCtor(this, k), args, sp)
			return err
		case info.nativeCtor != nil:
			return info.nativeCtor(rt, o, args)
		}
	}
	return nil
}

func (c *Closure) bindCtor(this value.Value, home *value.Class) *Closure {
	b := c.bind(this, home)
	b.ctor = true
	return b
}

// superCall implements `super(args)` inside a constructor.
func (rt *Runtime) superCall(f FrameID, args []value.Value, sp source.Span) error {
	fr, ok := rt.env.thisFrame(f)
	if !ok || fr.home == nil || !fr.ctor {
		return rt.throwf(sp, "SyntaxError", "super() outside a constructor")
	}
	this, home := fr.this, fr.home
	if home.Super == nil {
		return rt.typeError(sp, "%s has no superclass", home.Name)
	}
	o := this.Object()
	if o == nil {
		return rt.typeError(sp, "super() without an object receiver")
	}
	return rt.construct(home.Super, o, this, args, sp)
}

// superMember resolves `super.name` to a method bound to the current receiver.
func (rt *Runtime) superMember(f FrameID, name string, sp source.Span) (value.Value, error) {
	fr, ok := rt.env.thisFrame(f)
	if !ok || fr.home == nil || fr.home.Super == nil {
		return value.Null, rt.typeError(sp, "super.%s outside a subclass method", name)
	}
	this := fr.this
	m := fr.home.Super.Lookup(name)
	if m == nil {
		return value.Null, rt.typeError(sp, "%s has no method %s", fr.home.Super.Name, name)
	}
	return rt.boundMethod(m, this, sp)
}

// boundMethod turns a method slot into a callable bound to this.
func (rt *Runtime) boundMethod(m *value.Method, this value.Value, sp source.Span) (value.Value, error) {
	if m.Abstract || m.Fn == nil {
		return value.Null, rt.throwf(sp, "AbstractMethodError", "abstract method %s.%s has no implementation", m.Owner.Name, m.Name)
	}
	cl, ok := m.Fn.(*Closure)
	if !ok {
		return value.Func(m.Fn), nil
	}
	if m.Static {
		return value.Func(cl), nil
	}
	return value.Func(cl.bind(this, m.Owner)), nil
}

// isInstance implements `x is T` for class and interface names.
func (rt *Runtime) isInstance(v value.Value, t value.Value) bool {
	o := v.Object()
	if o == nil || t.K != value.KindClass {
		return false
	}
	target := t.Class()
	if info := infoOf(target); info != nil && info.iface != nil {
		return rt.implements(o.Class, target)
	}
	return o.Class.IsSubclassOf(target)
}
