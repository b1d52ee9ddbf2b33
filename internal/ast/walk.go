package ast

// Inspect обходит дерево в глубину. Если f возвращает false, дети узла
// пропускаются.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *File:
		for _, s := range n.Items {
			Inspect(s, f)
		}
	case *TemplateLit:
		for _, p := range n.Parts {
			if p.X != nil {
				Inspect(p.X, f)
			}
		}
	case *Paren:
		Inspect(n.X, f)
	case *Unary:
		Inspect(n.X, f)
	case *Postfix:
		Inspect(n.X, f)
	case *Binary:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *IsExpr:
		Inspect(n.X, f)
	case *TypeofExpr:
		Inspect(n.X, f)
	case *AwaitExpr:
		Inspect(n.X, f)
	case *SpawnExpr:
		Inspect(n.X, f)
	case *NewExpr:
		Inspect(n.Class, f)
		inspectExprs(n.Args, f)
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *Ternary:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *Call:
		Inspect(n.Fn, f)
		inspectExprs(n.Args, f)
	case *Member:
		Inspect(n.X, f)
	case *Index:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *ArrayLit:
		inspectExprs(n.Elems, f)
	case *TupleLit:
		inspectExprs(n.Elems, f)
	case *SetLit:
		inspectExprs(n.Elems, f)
	case *MapLit:
		for _, e := range n.Entries {
			Inspect(e.Key, f)
			Inspect(e.Value, f)
		}
	case *Spread:
		Inspect(n.X, f)
	case *FuncLit:
		inspectFunc(n.Fn, f)
	case *ValidateExpr:
		Inspect(n.Cond, f)
		Inspect(n.Msg, f)
	case *EmitExpr:
		inspectExprs(n.Args, f)
	case *MatchExpr:
		Inspect(n.Subject, f)
		for _, a := range n.Arms {
			Inspect(a.Pattern, f)
			Inspect(a.Body, f)
			inspectBlock(a.Block, f)
		}

	case *VarDecl:
		Inspect(n.Init, f)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *ExprStmt:
		Inspect(n.X, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *While:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *DoWhile:
		Inspect(n.Body, f)
		Inspect(n.Cond, f)
	case *For:
		Inspect(n.Init, f)
		Inspect(n.Cond, f)
		Inspect(n.Post, f)
		Inspect(n.Body, f)
	case *ForEach:
		Inspect(n.Iter, f)
		Inspect(n.Body, f)
	case *Switch:
		Inspect(n.Tag, f)
		for _, c := range n.Cases {
			Inspect(c.Value, f)
			for _, s := range c.Body {
				Inspect(s, f)
			}
		}
	case *Try:
		inspectBlock(n.Body, f)
		for _, c := range n.Catches {
			inspectBlock(c.Body, f)
		}
		inspectBlock(n.Finally, f)
	case *Throw:
		Inspect(n.X, f)
	case *Return:
		Inspect(n.X, f)
	case *LockStmt:
		Inspect(n.Target, f)
		inspectBlock(n.Body, f)
	case *Unlock:
		Inspect(n.Target, f)
	case *Transfer:
		Inspect(n.From, f)
		Inspect(n.To, f)
		Inspect(n.Amount, f)
	case *FuncDecl:
		inspectFunc(n.Fn, f)
	case *ClassDecl:
		inspectClass(n, f)
	case *ContractDecl:
		for _, l := range n.Ledger {
			Inspect(l.Init, f)
		}
		for _, fd := range n.Fields {
			Inspect(fd.Init, f)
		}
		if n.Ctor != nil {
			inspectFunc(n.Ctor, f)
		}
		for _, m := range n.Methods {
			inspectFunc(m.Fn, f)
		}
		for _, c := range n.Classes {
			Inspect(c, f)
		}
	case *ExportDecl:
		Inspect(n.Decl, f)
	}
}

func inspectExprs(xs []Expr, f func(Node) bool) {
	for _, x := range xs {
		Inspect(x, f)
	}
}

func inspectFunc(fn *Function, f func(Node) bool) {
	for _, p := range fn.Params {
		Inspect(p.Default, f)
		for _, fp := range p.Fields {
			Inspect(fp.Default, f)
		}
	}
	inspectBlock(fn.Body, f)
	Inspect(fn.Expr, f)
}

func inspectClass(c *ClassDecl, f func(Node) bool) {
	for _, fd := range c.Fields {
		Inspect(fd.Init, f)
	}
	if c.Ctor != nil {
		inspectFunc(c.Ctor, f)
	}
	for _, m := range c.Methods {
		if m.Fn.Body != nil {
			inspectFunc(m.Fn, f)
		}
	}
}

func inspectBlock(b *Block, f func(Node) bool) {
	if b != nil {
		Inspect(b, f)
	}
}
