package interp

import (
	"fmt"
	"math/big"

	"gard/internal/ast"
	"gard/internal/ledger"
	"gard/internal/source"
	"gard/internal/value"
)

// contractInfo describes a `blockchain contract` declaration. Every ledger
// field and plain field lives in the deployed account's storage.
type contractInfo struct {
	decl  *ast.ContractDecl
	slots []string
	inits map[string]ast.Expr
	types map[string]*ast.TypeRef
}

// contractMethod is `acct.method` for a deployed contract account.
type contractMethod struct {
	addr string
	name string
}

func (m *contractMethod) Name() string { return m.name }

// callInfo is the msg context of one contract method activation.
type callInfo struct {
	sender   string
	value    *big.Int
	readOnly bool
}

func (rt *Runtime) declareContract(d *ast.ContractDecl, f FrameID) error {
	ci := &contractInfo{decl: d, inits: make(map[string]ast.Expr), types: make(map[string]*ast.TypeRef)}
	for _, l := range d.Ledger {
		ci.slots = append(ci.slots, l.Name)
		ci.inits[l.Name], ci.types[l.Name] = l.Init, l.Type
	}
	for _, fd := range d.Fields {
		if fd.Mods.Has(ast.ModStatic) {
			continue
		}
		ci.slots = append(ci.slots, fd.Name)
		ci.inits[fd.Name], ci.types[fd.Name] = fd.Init, fd.Type
	}

	// область контракта: вложенные классы (события) и замыкания методов
	scope := rt.env.Push(f, false)
	defer rt.env.Release(scope)
	c := value.NewClass(d.Name, nil)
	info := &classInfo{contract: ci, env: scope}
	c.Data = info
	retainFor(rt.env, info, scope)

	for _, cd := range d.Classes {
		nested, err := rt.declareClass(cd, scope)
		if err != nil {
			return err
		}
		c.Statics.Set(value.Str(cd.Name), value.FromClass(nested))
	}
	if d.Ctor != nil {
		info.ctor = rt.newClosure(d.Ctor, scope, d.Name+".constructor")
		info.ctor.ctor = true
		info.ctor.home = c
	}
	for _, md := range d.Methods {
		rt.addMethod(c, md, scope)
	}
	if !rt.env.Declare(f, d.Name, ast.DeclConst, value.FromClass(c), true) {
		return rt.throwf(d.Span(), "SyntaxError", "%s is already declared", d.Name)
	}
	rt.contracts[d.Name] = c
	return nil
}

// deploy implements `new C(args)` for contracts: one transaction that
// creates the account, initializes storage and runs the constructor.
func (rt *Runtime) deploy(c *value.Class, args []value.Value, sp source.Span) (value.Value, error) {
	tc := rt.ctx()
	if tc.working != nil {
		return value.Null, rt.throwf(sp, "LedgerError", "contract %s cannot be deployed inside a transaction", c.Name)
	}
	addr := rt.ledger.ContractAddress(tc.sender)
	tx := ledger.NewTransaction(tc.sender, addr, tc.takeValue(), "constructor", args...)
	tx.Code = c.Name
	rcpt := rt.apply(tx, ledger.ContractFunc(func(w *ledger.Working, tx *ledger.Transaction) (value.Value, error) {
		return rt.runContract(c, addr, nil, args, w, callInfo{sender: tx.From, value: tx.Amount}, sp)
	}))
	if !rcpt.OK() {
		return value.Null, rt.throwable(rcpt.Err, sp)
	}
	return value.Account(addr), nil
}

func (rt *Runtime) apply(tx *ledger.Transaction, c ledger.Contract) *ledger.Receipt {
	rcpt := rt.ledger.ApplyTransaction(rt.runCtx, tx, c)
	rt.receipts = append(rt.receipts, rcpt)
	return rcpt
}

// contractAt resolves the contract class deployed at addr.
func (rt *Runtime) contractAt(addr string, sp source.Span) (*value.Class, error) {
	var code string
	if w := rt.ctx().working; w != nil {
		code = w.Code(addr)
	} else if a := rt.ledger.Account(addr); a != nil {
		code = a.Code
	}
	c := rt.contracts[code]
	if code == "" || c == nil {
		return nil, rt.typeError(sp, "%s is not a contract account", addr)
	}
	return c, nil
}

// callContract runs a contract method: a new top-level transaction, a view
// against committed state, or a nested call inside the running transaction.
func (rt *Runtime) callContract(addr, name string, args []value.Value, sp source.Span) (value.Value, error) {
	tc := rt.ctx()
	c, err := rt.contractAt(addr, sp)
	if err != nil {
		return value.Null, err
	}
	m := c.Lookup(name)
	if m == nil || m.Static {
		return value.Null, rt.typeError(sp, "contract %s has no method %s", c.Name, name)
	}
	cl := m.Fn.(*Closure)
	amount := tc.takeValue()
	if amount.Sign() > 0 && !cl.mods.Has(ast.ModPayable) {
		return value.Null, rt.typeError(sp, "method %s.%s is not payable", c.Name, name)
	}

	if w := tc.working; w != nil {
		call := callInfo{sender: tc.self, value: amount, readOnly: tc.readOnly || m.ReadOnly}
		if addr == tc.self {
			// внутренний вызов сохраняет msg
			call.sender = tc.msgSender
		}
		if amount.Sign() != 0 {
			if tc.readOnly {
				return value.Null, rt.typeError(sp, "cannot send value from a view method")
			}
			if err := w.Transfer(tc.self, addr, amount); err != nil {
				return value.Null, rt.throwable(err, sp)
			}
		}
		return rt.runContract(c, addr, cl, args, w, call, sp)
	}

	if m.ReadOnly {
		tx := ledger.NewTransaction(tc.sender, addr, new(big.Int), name, args...)
		v, err := rt.ledger.View(tx, func(w *ledger.Working) (value.Value, error) {
			return rt.runContract(c, addr, cl, args, w, callInfo{sender: tc.sender, value: new(big.Int), readOnly: true}, sp)
		})
		if err != nil {
			return value.Null, rt.throwable(err, sp)
		}
		return v, nil
	}
	tx := ledger.NewTransaction(tc.sender, addr, amount, name, args...)
	rcpt := rt.apply(tx, ledger.ContractFunc(func(w *ledger.Working, tx *ledger.Transaction) (value.Value, error) {
		return rt.runContract(c, addr, cl, args, w, callInfo{sender: tx.From, value: tx.Amount}, sp)
	}))
	if !rcpt.OK() {
		return value.Null, rt.throwable(rcpt.Err, sp)
	}
	return rcpt.Return, nil
}

// runContract activates a method of contract c at addr against w. A nil
// closure means deployment: storage is initialized and the constructor,
// if any, runs.
func (rt *Runtime) runContract(c *value.Class, addr string, cl *Closure, args []value.Value, w *ledger.Working, call callInfo, sp source.Span) (value.Value, error) {
	tc := rt.ctx()
	saved := *tc
	tc.working, tc.self, tc.msgSender, tc.readOnly = w, addr, call.sender, call.readOnly
	defer func() {
		tc.working, tc.self, tc.msgSender, tc.readOnly = saved.working, saved.self, saved.msgSender, saved.readOnly
	}()

	info := infoOf(c)
	ci := info.contract
	scope := rt.env.Push(info.env, false)
	defer rt.env.Release(scope)
	this := value.Account(addr)
	fr := rt.env.frame(scope)
	fr.this, fr.hasThis, fr.home, fr.contract = this, true, c, addr

	msg := value.NewObject(rt.msgClass)
	msg.Set("sender", value.Address(call.sender))
	msg.Set("value", bigValue(call.value))
	rt.env.Declare(scope, "msg", ast.DeclConst, value.FromObject(msg), true)
	for _, name := range ci.slots {
		rt.env.declareLedger(scope, name)
	}

	if cl == nil {
		for _, name := range ci.slots {
			v := defaultFor(ci.types[name])
			if init := ci.inits[name]; init != nil {
				var err error
				if v, err = rt.eval(init, scope); err != nil {
					return value.Null, err
				}
				v = coerceParam(ci.types[name], v)
			}
			if err := w.Store(addr, name, v); err != nil {
				return value.Null, rt.throwable(err, sp)
			}
		}
		if info.ctor == nil {
			return value.Null, nil
		}
		cl = info.ctor
	}
	b := cl.bind(this, c)
	b.env = scope
	b.ctor = cl.ctor
	return rt.invoke(b, args, sp)
}

// defaultFor is the zero value of a declared field type.
func defaultFor(t *ast.TypeRef) value.Value {
	if t == nil {
		return value.Null
	}
	if t.Array > 0 {
		return value.NewArray()
	}
	switch t.Name {
	case "map", "Map", "mapping":
		m := value.NewMap()
		if len(t.Args) == 2 {
			// только скаляры: общий ноль-контейнер нельзя отдавать по ссылке
			if z := defaultFor(t.Args[1]); !z.K.IsRef() {
				m.Zero = z
			}
		}
		return value.FromMap(m)
	case "set", "Set":
		return value.FromSet(value.NewSet())
	case "string":
		return value.Str("")
	case "address":
		return value.Address("")
	case "bool", "boolean":
		return value.Bool(false)
	}
	if k, ok := value.KindByName(t.Name); ok && k.IsNumeric() {
		return value.Integral(k, 0)
	}
	return value.Null
}

func (rt *Runtime) loadLedger(addr, name string, sp source.Span) (value.Value, error) {
	if w := rt.ctx().working; w != nil {
		v, err := w.Load(addr, name)
		return v, rt.wrap(err, sp)
	}
	if a := rt.ledger.Account(addr); a != nil {
		return a.Storage[name], nil
	}
	return value.Null, nil
}

func (rt *Runtime) storeLedger(addr, name string, v value.Value, sp source.Span) error {
	tc := rt.ctx()
	switch {
	case tc.working == nil:
		return rt.typeError(sp, "ledger field %s can only change inside a transaction", name)
	case tc.readOnly:
		return rt.typeError(sp, "cannot modify ledger field %s in a view method", name)
	case tc.self != addr:
		return rt.typeError(sp, "storage of %s can only change inside its own methods", addr)
	}
	return rt.wrap(tc.working.Store(addr, name, v), sp)
}

// guardLedgerWrite rejects index and member writes into containers held in
// ledger storage when the current activation may not write them.
func (rt *Runtime) guardLedgerWrite(x ast.Expr, f FrameID, sp source.Span) error {
	addr, ok := rt.ledgerRoot(x, f)
	if !ok {
		return nil
	}
	tc := rt.ctx()
	switch {
	case tc.readOnly:
		return rt.typeError(sp, "cannot modify ledger state in a view method")
	case tc.working == nil || tc.self != addr:
		return rt.typeError(sp, "storage of %s can only change inside its own methods", addr)
	}
	return nil
}

// ledgerRoot finds the contract address whose storage x reads from.
func (rt *Runtime) ledgerRoot(x ast.Expr, f FrameID) (string, bool) {
	switch t := x.(type) {
	case *ast.Paren:
		return rt.ledgerRoot(t.X, f)
	case *ast.Ident:
		if id, i, ok := rt.env.Lookup(f, t.Name); ok && rt.env.slot(id, i).ledger {
			return rt.env.frame(id).contract, true
		}
	case *ast.Member:
		if _, ok := t.X.(*ast.ThisExpr); ok {
			if fr, ok := rt.env.thisFrame(f); ok && fr.this.K == value.KindAccount {
				return fr.this.Text(), true
			}
		}
		if id, ok := t.X.(*ast.Ident); ok {
			if v, err := rt.lookup(id.Name, f, t.Span()); err == nil && v.K == value.KindAccount {
				return v.Text(), true
			}
		}
		return rt.ledgerRoot(t.X, f)
	case *ast.Index:
		return rt.ledgerRoot(t.X, f)
	}
	return "", false
}

func (rt *Runtime) accountMember(recv value.Value, name string, sp source.Span) (value.Value, error) {
	addr := recv.Text()
	switch name {
	case "address":
		return value.Address(addr), nil
	case "balance":
		b, err := rt.balance(addr, sp)
		if err != nil {
			return value.Null, err
		}
		return bigValue(b), nil
	}
	if recv.K == value.KindAccount {
		c, err := rt.contractAt(addr, sp)
		if err != nil {
			return value.Null, err
		}
		if m := c.Lookup(name); m != nil && !m.Static {
			return value.Func(&contractMethod{addr: addr, name: name}), nil
		}
		if v, ok := c.Statics.Get(value.Str(name)); ok {
			return v, nil
		}
		return rt.loadLedger(addr, name, sp)
	}
	return value.Null, rt.typeError(sp, "address has no member %s", name)
}

func (rt *Runtime) setAccountMember(recv value.Value, name string, v value.Value, sp source.Span) error {
	return rt.storeLedger(recv.Text(), name, v, sp)
}

func (rt *Runtime) balance(addr string, sp source.Span) (*big.Int, error) {
	if w := rt.ctx().working; w != nil {
		b, err := w.Balance(addr)
		return b, rt.wrap(err, sp)
	}
	return rt.ledger.BalanceOf(addr), nil
}

func (rt *Runtime) evalValidate(x *ast.ValidateExpr, f FrameID) (value.Value, error) {
	var (
		cond value.Value
		err  error
	)
	if w := rt.ctx().working; w != nil {
		// условие видит состояние до транзакции
		prev := w.Validating(true)
		cond, err = rt.eval(x.Cond, f)
		w.Validating(prev)
	} else {
		cond, err = rt.eval(x.Cond, f)
	}
	if err != nil {
		return value.Null, err
	}
	if cond.Truthy() {
		return value.Bool(true), nil
	}
	msg := "validation failed"
	if x.Msg != nil {
		m, err := rt.eval(x.Msg, f)
		if err != nil {
			return value.Null, err
		}
		msg = m.String()
	}
	ve := &ledger.ValidationError{Message: msg}
	if w := rt.ctx().working; w != nil {
		w.Fail(ve)
	}
	return value.Null, rt.throwable(ve, x.Span())
}

func (rt *Runtime) evalEmit(x *ast.EmitExpr, f FrameID) (value.Value, error) {
	tc := rt.ctx()
	if tc.working == nil {
		return value.Null, rt.throwf(x.Span(), "LedgerError", "emit %s outside a transaction", x.Name)
	}
	if tc.readOnly {
		return value.Null, rt.typeError(x.Span(), "cannot emit %s from a view method", x.Name)
	}
	args, err := rt.evalArgs(x.Args, f)
	if err != nil {
		return value.Null, err
	}
	names := rt.eventFieldNames(x.Name, f)
	ev := ledger.Event{Contract: tc.self, Name: x.Name, Fields: make([]ledger.EventField, len(args))}
	for i, a := range args {
		name := fmt.Sprintf("arg%d", i)
		if i < len(names) {
			name = names[i]
		}
		ev.Fields[i] = ledger.EventField{Name: name, Value: value.DeepCopy(a)}
	}
	return value.Null, rt.wrap(tc.working.Emit(ev), x.Span())
}

// eventFieldNames names event arguments after the event class fields, or
// its constructor parameters when it declares no fields.
func (rt *Runtime) eventFieldNames(name string, f FrameID) []string {
	id, i, ok := rt.env.Lookup(f, name)
	if !ok {
		return nil
	}
	info := infoOf(rt.env.slot(id, i).val.Class())
	if info == nil || info.decl == nil {
		return nil
	}
	var out []string
	for _, fd := range info.decl.Fields {
		out = append(out, fd.Name)
	}
	if len(out) == 0 && info.decl.Ctor != nil {
		for _, p := range info.decl.Ctor.Params {
			out = append(out, p.Name)
		}
	}
	return out
}

// execTransfer implements `transaction { from -> to : amount }`.
func (rt *Runtime) execTransfer(s *ast.Transfer, f FrameID) error {
	vals := make([]value.Value, 3)
	for i, x := range []ast.Expr{s.From, s.To, s.Amount} {
		v, err := rt.eval(x, f)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	from, err := rt.addressOf(vals[0], s.From.Span())
	if err != nil {
		return err
	}
	to, err := rt.addressOf(vals[1], s.To.Span())
	if err != nil {
		return err
	}
	amount, err := rt.toBig(vals[2], s.Amount.Span())
	if err != nil {
		return err
	}
	tc := rt.ctx()
	if w := tc.working; w != nil {
		switch {
		case tc.readOnly:
			return rt.typeError(s.Span(), "cannot move value from a view method")
		case from != tc.self && from != tc.msgSender:
			return rt.typeError(s.Span(), "transaction from %s: only the contract or msg.sender may send", from)
		}
		return rt.wrap(w.Transfer(from, to, amount), s.Span())
	}
	if from != tc.sender {
		return rt.typeError(s.Span(), "transaction from %s: the current sender is %s", from, tc.sender)
	}
	rcpt := rt.apply(ledger.NewTransaction(from, to, amount, ""), nil)
	if !rcpt.OK() {
		return rt.throwable(rcpt.Err, s.Span())
	}
	return nil
}

func (rt *Runtime) addressOf(v value.Value, sp source.Span) (string, error) {
	switch v.K {
	case value.KindAddress, value.KindString, value.KindAccount:
		return v.Text(), nil
	}
	return "", rt.typeError(sp, "expected an address, got %s", v.TypeName())
}

func (rt *Runtime) toBig(v value.Value, sp source.Span) (*big.Int, error) {
	switch {
	case v.K.IsIntegral():
		return big.NewInt(v.AsInt()), nil
	case v.K == value.KindString:
		if b, ok := new(big.Int).SetString(v.Text(), 10); ok {
			return b, nil
		}
	}
	return nil, rt.typeError(sp, "expected an integer amount, got %s", v.Repr())
}

// bigValue shows ledger amounts as long when they fit, as decimal text
// otherwise.
func bigValue(b *big.Int) value.Value {
	if b == nil {
		return value.Long(0)
	}
	if b.IsInt64() {
		return value.Long(b.Int64())
	}
	return value.Str(b.String())
}
