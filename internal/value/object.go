package value

// Function is anything callable. Implementations live in the interpreter and
// must be pointer types: function values compare by identity.
type Function interface {
	Name() string
}

// Method is one ordered slot of a class.
type Method struct {
	Name     string
	Fn       Function // nil for abstract methods
	Static   bool
	Abstract bool
	ReadOnly bool // view or pure
	Async    bool
	Owner    *Class
}

// Class carries ordered method slots and the explicit superclass chain.
type Class struct {
	Name       string
	Super      *Class
	Chain      []*Class // self first, then superclasses up to the root
	Methods    []*Method
	Interfaces []string
	Abstract   bool
	Event      bool
	Statics    *Map
	// Data holds interpreter-side information (field initializers, scope).
	Data any

	index map[string]int
	errorRoot bool
}

// NewClass builds a class and its chain. super may be nil.
func NewClass(name string, super *Class) *Class {
	c := &Class{Name: name, Super: super, Statics: NewMap(), index: make(map[string]int)}
	c.Chain = []*Class{c}
	if super != nil {
		c.Chain = append(c.Chain, super.Chain...)
	}
	return c
}

// MarkErrorRoot makes c the root of the throwable hierarchy.
func (c *Class) MarkErrorRoot() { c.errorRoot = true }

// IsError reports whether c derives from the error root.
func (c *Class) IsError() bool {
	for _, k := range c.Chain {
		if k.errorRoot {
			return true
		}
	}
	return false
}

// AddMethod appends a slot, replacing a previous slot with the same name.
func (c *Class) AddMethod(m *Method) {
	m.Owner = c
	if i, ok := c.index[m.Name]; ok {
		c.Methods[i] = m
		return
	}
	c.index[m.Name] = len(c.Methods)
	c.Methods = append(c.Methods, m)
}

// Own returns a method declared directly on c.
func (c *Class) Own(name string) *Method {
	if i, ok := c.index[name]; ok {
		return c.Methods[i]
	}
	return nil
}

// Lookup walks the chain; subclass slots shadow superclass slots.
func (c *Class) Lookup(name string) *Method {
	for _, k := range c.Chain {
		if m := k.Own(name); m != nil {
			return m
		}
	}
	return nil
}

// IsSubclassOf reports whether other appears in c's chain.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, k := range c.Chain {
		if k == other {
			return true
		}
	}
	return false
}

// HasAncestor matches by name, for `catch (e: Name)` against classes the
// handler only knows by name.
func (c *Class) HasAncestor(name string) bool {
	for _, k := range c.Chain {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Unimplemented lists abstract slots without a concrete override.
func (c *Class) Unimplemented() []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range c.Chain {
		for _, m := range k.Methods {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			if m.Abstract {
				out = append(out, m.Name)
			}
		}
	}
	return out
}

// Object is an instance with ordered fields.
type Object struct {
	Class  *Class
	fields map[string]Value
	order  []string
	ro     map[string]bool
}

func NewObject(c *Class) *Object {
	return &Object{Class: c, fields: make(map[string]Value)}
}

func (o *Object) Get(name string) (Value, bool) {
	v, ok := o.fields[name]
	return v, ok
}

func (o *Object) Set(name string, v Value) {
	if _, ok := o.fields[name]; !ok {
		o.order = append(o.order, name)
	}
	o.fields[name] = v
}

func (o *Object) Has(name string) bool {
	_, ok := o.fields[name]
	return ok
}

// MarkReadonly records that name may only be written by the constructor.
func (o *Object) MarkReadonly(name string) {
	if o.ro == nil {
		o.ro = make(map[string]bool)
	}
	o.ro[name] = true
}

func (o *Object) IsReadonly(name string) bool { return o.ro[name] }

func (o *Object) FieldNames() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
