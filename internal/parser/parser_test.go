package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"gard/internal/ast"
	"gard/internal/diag"
	"gard/internal/format"
	"gard/internal/lexer"
	"gard/internal/parser"
	"gard/internal/source"
	"gard/internal/token"
)

func parseSource(t *testing.T, src string) (*ast.File, error) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.gd", []byte(src))
	return parser.ParseFile(fs, id)
}

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parseSource(t, src)
	if err != nil {
		t.Fatalf("parse failed: %v\nsource:\n%s", err, src)
	}
	return f
}

func expectSyntaxError(t *testing.T, src string, code diag.Code) *parser.SyntaxError {
	t.Helper()
	_, err := parseSource(t, src)
	if err == nil {
		t.Fatalf("expected syntax error for:\n%s", src)
	}
	var se *parser.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
	if se.DiagCode() != code {
		t.Fatalf("expected %s, got %s (%v)", code.ID(), se.DiagCode().ID(), se)
	}
	return se
}

func onlyExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	f := mustParse(t, src)
	if len(f.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.Items))
	}
	es, ok := f.Items[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", f.Items[0])
	}
	return es.X
}

func TestPrecedence(t *testing.T) {
	x := onlyExpr(t, "a = b ?? c || d && e == f < g + h * i;")
	as, ok := x.(*ast.Assign)
	if !ok {
		t.Fatalf("top must be assignment, got %T", x)
	}
	co, ok := as.Value.(*ast.Binary)
	if !ok || co.Op != token.QuestionQuestion {
		t.Fatalf("expected ?? below assignment, got %#v", as.Value)
	}
	or, ok := co.Y.(*ast.Binary)
	if !ok || or.Op != token.OrOr {
		t.Fatalf("expected || under ??, got %#v", co.Y)
	}
	and := or.Y.(*ast.Binary)
	if and.Op != token.AndAnd {
		t.Fatalf("expected &&, got %v", and.Op)
	}
	eq := and.Y.(*ast.Binary)
	if eq.Op != token.EqEq {
		t.Fatalf("expected ==, got %v", eq.Op)
	}
	lt := eq.Y.(*ast.Binary)
	if lt.Op != token.Lt {
		t.Fatalf("expected <, got %v", lt.Op)
	}
	add := lt.Y.(*ast.Binary)
	if add.Op != token.Plus {
		t.Fatalf("expected +, got %v", add.Op)
	}
	if mul := add.Y.(*ast.Binary); mul.Op != token.Star {
		t.Fatalf("expected *, got %v", mul.Op)
	}
}

func TestAssignment_RightAssociative(t *testing.T) {
	x := onlyExpr(t, "a = b += 1;")
	outer := x.(*ast.Assign)
	inner, ok := outer.Value.(*ast.Assign)
	if !ok || inner.Op != token.PlusAssign {
		t.Fatalf("expected nested +=, got %#v", outer.Value)
	}
}

func TestTernaryBelowOr(t *testing.T) {
	x := onlyExpr(t, "a || b ? c : d;")
	tern, ok := x.(*ast.Ternary)
	if !ok {
		t.Fatalf("expected ternary, got %T", x)
	}
	if _, ok := tern.Cond.(*ast.Binary); !ok {
		t.Fatalf("condition should be a || b, got %T", tern.Cond)
	}
}

func TestPostfixChain(t *testing.T) {
	x := onlyExpr(t, "a?.b.c(1)[2]++;")
	pf, ok := x.(*ast.Postfix)
	if !ok {
		t.Fatalf("expected postfix ++, got %T", x)
	}
	idx := pf.X.(*ast.Index)
	call := idx.X.(*ast.Call)
	m := call.Fn.(*ast.Member)
	if m.Name != "c" || m.Optional {
		t.Fatalf("unexpected member %#v", m)
	}
	if inner := m.X.(*ast.Member); !inner.Optional || inner.Name != "b" {
		t.Fatalf("expected a?.b, got %#v", inner)
	}
}

func TestArrowFunctions(t *testing.T) {
	tests := []struct {
		src    string
		params int
		block  bool
	}{
		{"x => x + 1;", 1, false},
		{"(a, b) => a * b;", 2, false},
		{"() => { return 1; };", 0, true},
		{"async (x) => await x;", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			fl, ok := onlyExpr(t, tt.src).(*ast.FuncLit)
			if !ok || !fl.Fn.Arrow {
				t.Fatalf("expected arrow function")
			}
			if len(fl.Fn.Params) != tt.params {
				t.Errorf("params = %d, want %d", len(fl.Fn.Params), tt.params)
			}
			if (fl.Fn.Body != nil) != tt.block {
				t.Errorf("block body = %v, want %v", fl.Fn.Body != nil, tt.block)
			}
		})
	}
}

func TestGroupVsTuple(t *testing.T) {
	if _, ok := onlyExpr(t, "(a);").(*ast.Paren); !ok {
		t.Errorf("(a) must be a paren")
	}
	if tl, ok := onlyExpr(t, "(a, b);").(*ast.TupleLit); !ok || len(tl.Elems) != 2 {
		t.Errorf("(a, b) must be a 2-tuple")
	}
	if tl, ok := onlyExpr(t, "(a,);").(*ast.TupleLit); !ok || len(tl.Elems) != 1 {
		t.Errorf("(a,) must be a 1-tuple")
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src  string
		kind ast.LitKind
		i    int64
		f    float64
	}{
		{"42;", ast.LitInt, 42, 0},
		{"-2147483648;", ast.LitInt, -2147483648, 0},
		{"0xFF;", ast.LitInt, 255, 0},
		{"1_000L;", ast.LitLong, 1000, 0},
		{"-9223372036854775808L;", ast.LitLong, -9223372036854775808, 0},
		{"32767s;", ast.LitShort, 32767, 0},
		{"1.5;", ast.LitDouble, 0, 1.5},
		{"2.5f;", ast.LitFloat, 0, 2.5},
		{"3d;", ast.LitDouble, 0, 3},
		{"'a';", ast.LitChar, 'a', 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			lit, ok := onlyExpr(t, tt.src).(*ast.Literal)
			if !ok {
				t.Fatalf("expected literal")
			}
			if lit.Kind != tt.kind || lit.Int != tt.i || lit.Float != tt.f {
				t.Errorf("got kind=%v int=%d float=%g", lit.Kind, lit.Int, lit.Float)
			}
		})
	}
}

func TestLiteralOverflow(t *testing.T) {
	for _, src := range []string{
		"2147483648;",
		"32768s;",
		"99999999999999999999L;",
		"let x = -2147483649;",
	} {
		t.Run(src, func(t *testing.T) {
			expectSyntaxError(t, src, diag.SynLiteralOverflow)
		})
	}
}

func TestTemplateHoles(t *testing.T) {
	tl, ok := onlyExpr(t, "`sum ${a + b} of ${xs.length}`;").(*ast.TemplateLit)
	if !ok {
		t.Fatalf("expected template literal")
	}
	if len(tl.Parts) != 3 {
		t.Fatalf("parts = %d", len(tl.Parts))
	}
	if _, ok := tl.Parts[0].X.(*ast.Binary); !ok {
		t.Errorf("first hole must be a + b, got %T", tl.Parts[0].X)
	}
	if _, ok := tl.Parts[1].X.(*ast.Member); !ok {
		t.Errorf("second hole must be xs.length, got %T", tl.Parts[1].X)
	}
	if tl.Parts[2].X != nil || tl.Parts[2].Text != "" {
		t.Errorf("tail part must be empty text, got %#v", tl.Parts[2])
	}
}

func TestMatchCatchAllMustBeLast(t *testing.T) {
	mustParse(t, "match (x) { 1 => \"one\", _ => \"other\" }")
	se := expectSyntaxError(t, "match (x) { _ => 0, 1 => 1 }", diag.SynCatchAllNotLast)
	if se.Found.Kind != token.IntLit {
		t.Errorf("found = %v", se.Found.Kind)
	}
}

func TestMatchArmsAcceptBothArrows(t *testing.T) {
	f := mustParse(t, "match (x) { 1 -> { print(1); } (2) => 2, _ -> 3 }")
	m := f.Items[0].(*ast.ExprStmt).X.(*ast.MatchExpr)
	if len(m.Arms) != 3 {
		t.Fatalf("arms = %d", len(m.Arms))
	}
	if m.Arms[0].Block == nil || m.Arms[0].Arrow != token.Arrow {
		t.Errorf("arm 0: %#v", m.Arms[0])
	}
	if _, ok := m.Arms[1].Pattern.(*ast.Paren); !ok {
		t.Errorf("(2) inside a pattern must not become an arrow function")
	}
	if m.Arms[2].Pattern != nil {
		t.Errorf("last arm must be catch-all")
	}
}

func TestSwitchDefault(t *testing.T) {
	mustParse(t, "switch (x) { case 1: a(); break; default: b(); }")
	expectSyntaxError(t, "switch (x) { default: b(); case 1: a(); }", diag.SynCatchAllNotLast)
	expectSyntaxError(t, "switch (x) { case 1: default: default: }", diag.SynDuplicateDefault)
}

func TestUntypedCatchMustBeLast(t *testing.T) {
	mustParse(t, "try { f(); } catch (e: TypeError) {} catch (e) {} finally {}")
	expectSyntaxError(t, "try { f(); } catch (e) {} catch (e: TypeError) {}", diag.SynCatchAllNotLast)
}

func TestNamedArguments(t *testing.T) {
	src := `
function connect({host, port = 80}) { return host; }
connect({host: "a", port: 1});
connect({host: "a"});
`
	mustParse(t, src)

	bad := `
function connect({host, port = 80}) { return host; }
connect({host: "a", tls: true});
`
	se := expectSyntaxError(t, bad, diag.SynUnknownNamedArg)
	if se.Found.Text != "tls" {
		t.Errorf("found = %q", se.Found.Text)
	}
	if diff := cmp.Diff([]string{"host", "port"}, se.Expected); diff != "" {
		t.Errorf("expected names mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	expectSyntaxError(t, "1 = 2;", diag.SynInvalidTarget)
	expectSyntaxError(t, "f() += 1;", diag.SynInvalidTarget)
	expectSyntaxError(t, "a?.b = 1;", diag.SynInvalidTarget)
}

func TestSyntaxErrorReportsExpected(t *testing.T) {
	se := expectSyntaxError(t, "let x = 1", diag.SynUnexpectedToken)
	if len(se.Expected) != 1 || se.Expected[0] != token.Semicolon.String() {
		t.Errorf("expected = %v", se.Expected)
	}
	if se.Found.Kind != token.EOF {
		t.Errorf("found = %v", se.Found.Kind)
	}
	if !strings.Contains(se.Error(), "expected ';'") {
		t.Errorf("message = %q", se.Error())
	}
}

func TestConstRequiresInitializer(t *testing.T) {
	expectSyntaxError(t, "const x;", diag.SynUnexpectedToken)
}

func TestLexErrorPassesThrough(t *testing.T) {
	_, err := parseSource(t, "let s = \"open;")
	var le *lexer.LexError
	if !errors.As(err, &le) || le.Kind != lexer.UnterminatedString {
		t.Fatalf("expected UnterminatedString LexError, got %v", err)
	}
}

func TestDocCommentsAttach(t *testing.T) {
	f := mustParse(t, "/// Adds numbers.\n/// Second line.\nfunction add(a, b) { return a + b; }")
	fd := f.Items[0].(*ast.FuncDecl)
	if fd.Doc != "Adds numbers.\nSecond line." {
		t.Errorf("doc = %q", fd.Doc)
	}
}

func TestContractDecl(t *testing.T) {
	src := `
blockchain contract Token {
    ledger balances: Map<address, int>;
    ledger owner: address;
    name: string = "T";

    @event
    class Transfer {
        from: address;
        to: address;
        amount: int;
    }

    constructor(supply: int) {
        this.owner = msg.sender;
        balances[msg.sender] = supply;
    }

    public function transfer(to: address, amount: int): bool {
        validate(balances[msg.sender] >= amount, "Insufficient balance");
        balances[msg.sender] -= amount;
        balances[to] += amount;
        emit Transfer(msg.sender, to, amount);
        return true;
    }

    public view function balanceOf(who: address): int {
        return balances[who];
    }
}`
	f := mustParse(t, src)
	c, ok := f.Items[0].(*ast.ContractDecl)
	if !ok {
		t.Fatalf("expected contract, got %T", f.Items[0])
	}
	if !c.Blockchain || c.Name != "Token" {
		t.Errorf("header: %+v", c)
	}
	if len(c.Ledger) != 2 || c.Ledger[0].Type.String() != "Map<address, int>" {
		t.Errorf("ledger fields: %d", len(c.Ledger))
	}
	if len(c.Classes) != 1 || !c.Classes[0].IsEvent() {
		t.Errorf("event class missing")
	}
	if c.Ctor == nil || len(c.Methods) != 2 {
		t.Fatalf("members: ctor=%v methods=%d", c.Ctor != nil, len(c.Methods))
	}
	if !c.Methods[1].Mods.ReadOnly() {
		t.Errorf("balanceOf must be view")
	}
}

// ===== round-trip: print(parse(src)) разбирается в то же дерево =====

var roundTripCorpus = []string{
	`let a = 1;
var b: int = a + 2 * 3;
const c = "str\n\"q\"";
readonly r = 'x';`,
	`function fib(n: int): int {
    if (n < 2) return n;
    else return fib(n - 1) + fib(n - 2);
}`,
	`async function worker(ch, id) {
    let total = 0L;
    foreach (const v in ch.values()) {
        total += v;
    }
    do {
        total--;
    } while (total > 100);
    for (let i = 0; i < 10; i++) {
        if (i % 2 == 0) continue;
        if (i > 7) break;
    }
    for (;;) { break; }
    return await spawn compute(id, ...rest);
}`,
	`abstract class Shape implements Drawable, Named {
    readonly name: string;
    static count = 0;
    constructor(name) {
        this.name = name;
    }
    abstract function area(): double;
    describe() { return ` + "`${this.name}: ${this.area()}`" + `; }
}
class Circle extends Shape {
    r: double = 1.5d;
    function area() { return 3.14f * this.r * this.r; }
}`,
	`interface Drawable extends Base {
    function draw(ctx: Canvas): void;
    width: int;
}`,
	`import { Token, helper as h } from "lib/token";
/// Exported doc.
export function main() {
    let m = {a: 1, "b c": 2, [k]: 3, [(z)]: 4};
    let s = #{1, 2, 3};
    let t = (1, "two", 3.0);
    let arr = [1, ...rest, x?.y ?? 0];
    let f = (x, {y, z = 2}: Opts, ...more) => x + y;
    let g = async function named(a = 1) { return -a; };
    let v = typeof a is string ? -5 : - -5;
    let n = new Point(1, 2).norm();
    let k = new Registry;
    let neg = !(a && b) || c != d;
    lock (mu) { counter++; }
    unlock(mu);
    transaction { this -> to : amount }
    try { risky(); } catch (e: ValidationFailed) { log(e); } catch (e) { throw e; } finally { done(); }
    switch (n) {
        case 1:
            one();
        default:
            other();
    }
    let res = match (n) {
        1 => "one",
        (2) -> { print("two"); },
        _ => ` + "`many ${n}`" + `,
    };
}`,
	`@event
class Approval {
    owner: address;
}
contract Plain {
    ledger allowance: Map<address, Map<address, int>>;
    public payable function deposit() { validate(msg.value > 0); }
}`,
}

func TestRoundTrip(t *testing.T) {
	opts := cmp.Options{
		cmpopts.IgnoreTypes(source.Span{}),
		cmpopts.IgnoreFields(ast.File{}, "Path"),
		cmpopts.EquateEmpty(),
	}
	for i, src := range roundTripCorpus {
		first := mustParse(t, src)
		printed := format.File(first, format.Options{})
		second, err := parseSource(t, printed)
		if err != nil {
			t.Fatalf("corpus %d: reparse failed: %v\nprinted:\n%s", i, err, printed)
		}
		if diff := cmp.Diff(first, second, opts); diff != "" {
			t.Errorf("corpus %d: AST mismatch after round-trip (-first +second):\n%s\nprinted:\n%s", i, diff, printed)
		}
		// печать идемпотентна
		if again := format.File(second, format.Options{}); again != printed {
			t.Errorf("corpus %d: printer is not idempotent:\n%s\n---\n%s", i, printed, again)
		}
	}
}
