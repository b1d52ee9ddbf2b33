package interp_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gard/internal/interp"
	"gard/internal/ledger"
	"gard/internal/parser"
	"gard/internal/source"
	"gard/internal/value"
)

type result struct {
	out string
	val value.Value
	err error
	rt  *interp.Runtime
}

func run(t *testing.T, src string, opts interp.Options) result {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.gard", []byte(src))
	f, err := parser.ParseFile(fs, id)
	require.NoError(t, err)
	var out bytes.Buffer
	opts.Out = &out
	opts.Files = fs
	rt, err := interp.New(opts)
	require.NoError(t, err)
	v, err := rt.Run(context.Background(), f)
	return result{out: out.String(), val: v, err: err, rt: rt}
}

func mustRun(t *testing.T, src string) string {
	t.Helper()
	r := run(t, src, interp.Options{})
	require.NoError(t, r.err)
	return r.out
}

func TestFinallyRunsOnceAndRethrows(t *testing.T) {
	out := mustRun(t, `
function f() {
    try { throw "x"; } finally { print("cleanup"); }
}
try { f(); } catch (e) { print("caught", e); }
`)
	assert.Equal(t, "cleanup\ncaught x\n", out)

	r := run(t, `try { throw "x"; } finally { print("cleanup"); }`, interp.Options{})
	assert.Equal(t, "cleanup\n", r.out)
	var th *interp.Thrown
	require.ErrorAs(t, r.err, &th)
	assert.Equal(t, "x", th.Value.Text())
}

func TestFinallyOverridesReturn(t *testing.T) {
	out := mustRun(t, `
function f() {
    try { return 1; } finally { return 2; }
}
println(f());
`)
	assert.Equal(t, "2\n", out)
}

func TestConstCannotBeReassigned(t *testing.T) {
	r := run(t, "const a = 1;\na = 2;", interp.Options{})
	require.Error(t, r.err)
	assert.True(t, errors.Is(r.err, interp.ErrorClass("ImmutableAssignmentError")), r.err)
	assert.True(t, errors.Is(r.err, interp.ErrorClass("RuntimeError")), "hierarchy")
}

func TestReadonlyFieldOnlyInConstructor(t *testing.T) {
	r := run(t, `
class P {
    readonly id: int;
    constructor(id) { this.id = id; }
}
let p = new P(3);
println(p.id);
p.id = 4;
`, interp.Options{})
	assert.Equal(t, "3\n", r.out)
	assert.True(t, errors.Is(r.err, interp.ErrorClass("ImmutableAssignmentError")), r.err)
}

func TestClosuresKeepTheirOwnState(t *testing.T) {
	out := mustRun(t, `
function makeCounter() {
    let n = 0;
    return () => { n++; return n; };
}
let c = makeCounter();
c();
c();
let d = makeCounter();
println(c(), d());
`)
	assert.Equal(t, "3 1\n", out)
}

func TestLoopClosuresCaptureIteration(t *testing.T) {
	out := mustRun(t, `
let fs = [];
for (let i = 0; i < 3; i++) {
    fs.push(() => i);
}
println(fs[0](), fs[1](), fs[2]());
`)
	assert.Equal(t, "0 1 2\n", out)
}

func TestCatchMatchesHierarchy(t *testing.T) {
	out := mustRun(t, `
try {
    let x = 1 / 0;
} catch (e: TypeError) {
    println("type");
} catch (e: RuntimeError) {
    println("runtime", typeof e);
}

class MyErr extends Error {
    constructor(m) {
        super(m);
        this.code = 7;
    }
}
try {
    throw new MyErr("bad");
} catch (e: MyErr) {
    println(e.message, e.code);
}
`)
	assert.Equal(t, "runtime DivisionByZeroError\nbad 7\n", out)
}

func TestUndefinedVariable(t *testing.T) {
	r := run(t, "println(nope);", interp.Options{})
	assert.True(t, errors.Is(r.err, interp.ErrorClass("UndefinedVariableError")), r.err)
}

func TestAbstractClasses(t *testing.T) {
	out := mustRun(t, `
abstract class Shape {
    abstract function area();
    describe() { return ` + "`area ${this.area()}`" + `; }
}
class Sq extends Shape {
    constructor(s) { this.s = s; }
    function area() { return this.s * this.s; }
}
class Half extends Shape {}

println(new Sq(3).describe());
try { new Shape(); } catch (e: TypeError) { println("no instances"); }
try { new Half().describe(); } catch (e: AbstractMethodError) { println("abstract"); }
println(new Sq(2) is Shape);
`)
	assert.Equal(t, "area 9\nno instances\nabstract\ntrue\n", out)
}

func TestInterfaceMustBeImplemented(t *testing.T) {
	r := run(t, `
interface Named { function name(); }
class A implements Named {}
`, interp.Options{})
	assert.True(t, errors.Is(r.err, interp.ErrorClass("TypeError")), r.err)
}

func TestSwitchDoesNotFallThrough(t *testing.T) {
	out := mustRun(t, `
function kind(n) {
    let s = "";
    switch (n) {
        case 1:
            s = "one";
        case 2:
            s = "two";
        default:
            s = "many";
    }
    return s;
}
println(kind(1), kind(2), kind(9));
`)
	assert.Equal(t, "one two many\n", out)
}

func TestMatchExpression(t *testing.T) {
	out := mustRun(t, `
function describe(v) {
    return match (v) {
        1 => "one",
        string => "text",
        _ => "other",
    };
}
println(describe(1), describe("s"), describe(2.5));
`)
	assert.Equal(t, "one text other\n", out)
}

func TestLockedCounter(t *testing.T) {
	out := mustRun(t, `
let mutex = Mutex();
let counter = 0;
async function worker() {
    for (let i = 0; i < 1000; i++) {
        await mutex.lock();
        counter++;
        mutex.unlock();
        yield();
    }
}
let a = worker();
let b = worker();
await a;
await b;
println(counter);
`)
	assert.Equal(t, "2000\n", out)
}

func TestChannelCloseEndsConsumer(t *testing.T) {
	out := mustRun(t, `
let ch = Channel(1);
let got = [];
async function producer() {
    ch.send("a");
    ch.close();
}
async function consumer() {
    foreach (let v in ch) {
        got.push(v);
    }
    got.push(ch.receive());
}
let p = producer();
let c = consumer();
await p;
await c;
println(got.length, got[0], got[1]);
`)
	assert.Equal(t, "2 a null\n", out)
}

func TestCancelledTaskFailsAwaiter(t *testing.T) {
	out := mustRun(t, `
async function slow() {
    sleep(1000);
    return 1;
}
let t = slow();
t.cancel();
try {
    await t;
} catch (e: CancelledError) {
    println("cancelled");
}
`)
	assert.Equal(t, "cancelled\n", out)
}

func TestDeadlineFailsTask(t *testing.T) {
	out := mustRun(t, `
async function slow() {
    sleep(1000);
    return 1;
}
let t = withDeadline(slow(), 10);
try {
    await t;
} catch (e: DeadlockTimeout) {
    println("deadline");
}
`)
	assert.Equal(t, "deadline\n", out)
}

const tokenContract = `
blockchain contract Token {
    ledger balances: Map<address, int>;

    @event
    class Transfer {
        from: address;
        to: address;
        amount: int;
    }

    constructor() {
        balances["bob"] = 50;
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
}
`

func TestInsufficientBalanceLeavesLedgerUnchanged(t *testing.T) {
	r := run(t, tokenContract+`
setSender("bob");
let t = new Token();
try {
    t.transfer("alice", 100);
} catch (e: ValidationFailed) {
    println(e.message);
}
println(t.balanceOf("bob"), t.balanceOf("alice"));
t.transfer("alice", 20);
println(t.balanceOf("bob"), t.balanceOf("alice"));
`, interp.Options{})
	require.NoError(t, r.err)
	assert.Equal(t, "Insufficient balance\n50 0\n30 20\n", r.out)

	rcpts := r.rt.Receipts()
	require.Len(t, rcpts, 3)
	assert.True(t, rcpts[0].OK(), "deploy")
	assert.Equal(t, ledger.StatusRolledBack, rcpts[1].Status)
	assert.Equal(t, "Insufficient balance", rcpts[1].Reason)
	require.True(t, rcpts[2].OK(), rcpts[2].Reason)
	require.Len(t, rcpts[2].Events, 1)
	ev := rcpts[2].Events[0]
	assert.Equal(t, "Transfer", ev.Name)
	require.Len(t, ev.Fields, 3)
	assert.Equal(t, "from", ev.Fields[0].Name)
	assert.Equal(t, "bob", ev.Fields[0].Value.Text())
	assert.Equal(t, int64(20), ev.Fields[2].Value.AsInt())
}

func TestCaughtValidateStillRollsBack(t *testing.T) {
	r := run(t, `
blockchain contract Vault {
    ledger held: Map<address, int>;

    constructor() {
        held["bob"] = 50;
    }

    public function drain(to: address, amount: int): bool {
        held[msg.sender] -= amount;
        held[to] += amount;
        try {
            validate(held[msg.sender] >= amount, "Insufficient balance");
        } catch (e) {
        }
        return true;
    }

    public view function heldBy(who: address): int {
        return held[who];
    }
}
setSender("bob");
let v = new Vault();
try {
    v.drain("alice", 100);
} catch (e: ValidationFailed) {
    println(e.message);
}
println(v.heldBy("bob"), v.heldBy("alice"));
`, interp.Options{})
	require.NoError(t, r.err)
	assert.Equal(t, "Insufficient balance\n50 0\n", r.out)

	rcpts := r.rt.Receipts()
	require.Len(t, rcpts, 2)
	assert.Equal(t, ledger.StatusRolledBack, rcpts[1].Status)
	assert.Equal(t, "Insufficient balance", rcpts[1].Reason)
}

func TestViewMethodCannotWrite(t *testing.T) {
	out := mustRun(t, `
blockchain contract Box {
    ledger v: int;
    public view function poke() { v = 5; return v; }
    public view function get() { return v; }
}
let b = new Box();
try { b.poke(); } catch (e: TypeError) { println("rejected"); }
println(b.get());
`)
	assert.Equal(t, "rejected\n0\n", out)
}

func TestNativeTransfer(t *testing.T) {
	out := mustRun(t, `
genesis({alice: 100, bob: 5});
setSender("alice");
transaction { "alice" -> "bob" : 30 }
println(balanceOf("alice"), balanceOf("bob"));
try {
    transaction { "alice" -> "bob" : 1000 }
} catch (e: ValidationFailed) {
    println(e.message);
}
println(balanceOf("alice"), balanceOf("bob"));
`)
	assert.Equal(t, "70 35\nInsufficient balance\n70 35\n", out)
}

func TestImportsBindExportedNames(t *testing.T) {
	loader := interp.MapLoader{
		"lib/math": `
export function sq(x) { return x * x; }
function hidden() { return 1; }
export const K = 3;
`,
	}
	r := run(t, `
import { sq, K as k } from "lib/math";
println(sq(4) + k);
`, interp.Options{Loader: loader})
	require.NoError(t, r.err)
	assert.Equal(t, "19\n", r.out)

	r = run(t, `import { hidden } from "lib/math";`, interp.Options{Loader: loader})
	assert.True(t, errors.Is(r.err, interp.ErrorClass("UndefinedVariableError")), r.err)
}

func TestNativesExtendBuiltins(t *testing.T) {
	natives := map[string]interp.NativeFunc{
		"answer": func(*interp.Runtime, []value.Value, source.Span) (value.Value, error) {
			return value.Int(42), nil
		},
	}
	r := run(t, "println(answer(), len([1, 2, 3]));", interp.Options{Natives: natives})
	require.NoError(t, r.err)
	assert.Equal(t, "42 3\n", r.out)
}

func TestStringLiteralsAreNFC(t *testing.T) {
	// "e" + U+0301 и готовое "é" совпадают после нормализации
	out := mustRun(t, "println(\"e\u0301\" == \"\u00e9\", normalize(\"\u00e9\", \"NFD\").length);")
	assert.Equal(t, "true 2\n", out)
}

func TestTemplateStringsKeepLiteralText(t *testing.T) {
	out := mustRun(t, "let x = 9;\n"+
		"let a = 1;\n"+
		"let b = 2;\n"+
		"println(`area ${x}`);\n"+
		"println(`a${1}b${2}c`);\n"+
		"println(`${a}+${b}=${a + b}`);\n"+
		"println(`plain`);\n"+
		"function label(n) { return `n=${n}!`; }\n"+
		"println(label(x));\n")
	assert.Equal(t, "area 9\na1b2c\n1+2=3\nplain\nn=9!\n", out)
}

func TestOversizedSyncArgumentsRejected(t *testing.T) {
	out := mustRun(t, `
try { Channel(1099511627776L); } catch (e: TypeError) { println(e.message); }
try { Barrier(4294967296L); } catch (e: TypeError) { println(e.message); }
println(len("héllo"), typeof(len("abc")));
`)
	assert.Equal(t, "Channel capacity 1099511627776 is out of range\n"+
		"Barrier parties 4294967296 is out of range\n"+
		"5 int\n", out)
}
