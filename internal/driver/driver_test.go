package driver_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gard/internal/config"
	"gard/internal/diag"
	"gard/internal/driver"
	"gard/internal/format"
	"gard/internal/token"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTokenizeSource(t *testing.T) {
	res := driver.TokenizeSource("a.gard", "let x = 1;", 8)
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	if n := len(res.Tokens); n == 0 || res.Tokens[n-1].Kind != token.EOF {
		t.Fatalf("token stream must end with EOF: %v", res.Tokens)
	}

	res = driver.TokenizeSource("b.gard", "let s = \"abc", 8)
	if !res.Bag.HasErrors() {
		t.Fatal("expected unterminated string diagnostic")
	}
	if got := res.Bag.Items()[0].Code; got != diag.LexUnterminatedString {
		t.Fatalf("code = %v, want %v", got, diag.LexUnterminatedString)
	}
}

func TestParseSourceReportsSyntaxError(t *testing.T) {
	res := driver.ParseSource("bad.gard", "let = ;", 8)
	if res.AST != nil {
		t.Fatal("AST must be nil after a syntax error")
	}
	if !res.Bag.HasErrors() {
		t.Fatal("expected a syntax diagnostic")
	}

	res = driver.ParseSource("ok.gard", "function f() { return 1; }", 8)
	if res.AST == nil || len(res.AST.Items) != 1 {
		t.Fatalf("expected one item, got %+v", res.AST)
	}
}

func TestCompileAndRun(t *testing.T) {
	var out bytes.Buffer
	_, errs := driver.CompileAndRun(context.Background(), "function f(x) { return x * 2; }\nprintln(f(21));", driver.RunOptions{Out: &out})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if out.String() != "42\n" {
		t.Fatalf("out = %q", out.String())
	}
}

func TestCompileAndRunReportsUncaught(t *testing.T) {
	var out bytes.Buffer
	_, errs := driver.CompileAndRun(context.Background(), `throw "boom";`, driver.RunOptions{Out: &out})
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one", errs)
	}
	if d := diag.FromError(errs[0]); d.Code != diag.RunUncaught {
		t.Fatalf("code = %v, want %v", d.Code, diag.RunUncaught)
	}

	_, errs = driver.CompileAndRun(context.Background(), "let = ;", driver.RunOptions{Out: &out})
	if len(errs) != 1 {
		t.Fatalf("syntax error must be the only error, got %v", errs)
	}
}

func TestCompileAndRunUsesConfigGenesis(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Genesis = map[string]string{"alice": "100"}
	var out bytes.Buffer
	_, errs := driver.CompileAndRun(context.Background(), `println(balanceOf("alice"), balanceOf("bob"));`,
		driver.RunOptions{Out: &out, Config: &cfg})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if out.String() != "100 0\n" {
		t.Fatalf("out = %q", out.String())
	}
}

func TestRunFilePersistsLedger(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.gard")
	writeFile(t, filepath.Join(dir, "lib", "amount.gard"), "export const AMOUNT = 10;\n")
	writeFile(t, main, `
import { AMOUNT } from "lib/amount";
transaction { "alice" -> "bob" : AMOUNT }
println(balanceOf("alice"), balanceOf("bob"));
`)
	cfg := config.Default()
	cfg.Ledger.Store = "leveldb"
	cfg.Ledger.Path = filepath.Join(dir, "chain")
	cfg.Ledger.DefaultSender = "alice"
	cfg.Ledger.Genesis = map[string]string{"alice": "100"}

	var out bytes.Buffer
	var events []driver.PhaseEvent
	for i := 0; i < 2; i++ {
		res, err := driver.RunFile(context.Background(), main, driver.RunOptions{
			Out:      &out,
			Config:   &cfg,
			Observer: func(ev driver.PhaseEvent) { events = append(events, ev) },
		})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(res.Errors) != 0 {
			t.Fatalf("run %d errors: %v", i, res.Errors)
		}
		if len(res.Receipts) != 1 || !res.Receipts[0].OK() {
			t.Fatalf("run %d receipts: %+v", i, res.Receipts)
		}
		if res.Ledger != nil {
			t.Fatal("ledger must be closed unless KeepLedger is set")
		}
		var names []string
		for _, p := range res.Timing.Phases {
			names = append(names, p.Name)
		}
		if got := strings.Join(names, ","); got != "parse,setup,eval" {
			t.Fatalf("phases = %s", got)
		}
	}
	// второй запуск видит состояние первого, genesis не повторяется
	if out.String() != "90 10\n80 20\n" {
		t.Fatalf("out = %q", out.String())
	}
	if len(events) != 12 {
		t.Fatalf("observer saw %d events, want 12", len(events))
	}
	if events[0].Done || !events[1].Done || events[1].Name != "parse" || events[1].Note != "3 items" {
		t.Fatalf("first phase events: %+v %+v", events[0], events[1])
	}
}

func TestRunFileRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.gard")
	writeFile(t, main, "println(1);\n")
	cfg := config.Default()
	cfg.Ledger.Store = "s3"
	if _, err := driver.RunFile(context.Background(), main, driver.RunOptions{Config: &cfg}); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestCheckParallelAndCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_good.gard"), "import { x } from \"missing\";\nlet y = 1;\n")
	writeFile(t, filepath.Join(dir, "b_bad.gard"), "let = ;\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not gard")
	writeFile(t, filepath.Join(dir, ".gard", "skip.gard"), "let = ;\n")

	files, err := driver.ListSourceFiles(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}

	dc, err := driver.OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("disk cache: %v", err)
	}
	mc := driver.NewModuleCache(8)
	events := make(chan driver.Event, 64)
	opts := driver.CheckOptions{Jobs: 2, MaxDiagnostics: 8, Cache: mc, DiskCache: dc, Events: events}

	results, err := driver.Check(context.Background(), files, opts)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	good, bad := results[0], results[1]
	if good.Bag.HasErrors() || good.Bag.Len() != 1 || good.Bag.Items()[0].Code != diag.RunImport {
		t.Fatalf("good diagnostics: %+v", good.Bag.Items())
	}
	if len(good.Imports) != 1 || good.Imports[0] != "missing" {
		t.Fatalf("imports = %v", good.Imports)
	}
	if !bad.Bag.HasErrors() || bad.AST != nil {
		t.Fatalf("bad file must fail: %+v", bad.Bag.Items())
	}
	if mc.Len() != 2 {
		t.Fatalf("module cache holds %d entries", mc.Len())
	}
	close(events)
	var done int
	for ev := range events {
		if ev.Status == driver.StatusDone || ev.Status == driver.StatusError {
			done++
		}
	}
	if done != 2 {
		t.Fatalf("saw %d final events", done)
	}

	again, err := driver.Check(context.Background(), files, driver.CheckOptions{Jobs: 1, MaxDiagnostics: 8, Cache: mc})
	if err != nil || !again[0].Cached || !again[1].Cached {
		t.Fatalf("expected memory cache hits: %v", err)
	}

	// только дисковый кеш: AST не восстанавливается, диагностики да
	fromDisk, err := driver.Check(context.Background(), files, driver.CheckOptions{MaxDiagnostics: 8, DiskCache: dc})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !fromDisk[1].Cached || !fromDisk[1].Bag.HasErrors() || fromDisk[1].AST != nil {
		t.Fatalf("disk cache result: %+v", fromDisk[1])
	}
	if fromDisk[0].Bag.Items()[0].Primary.Empty() {
		t.Fatal("cached diagnostic lost its span")
	}
}

func TestCheckFmtRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.gard")
	writeFile(t, path, `
class Point {
    constructor(x, y) { this.x = x; this.y = y; }
    function sum() { return this.x + this.y; }
}
async function main() {
    let p = new Point(1, 2);
    foreach (let v in [1, 2, 3]) { println(v + p.sum()); }
}
`)
	results, err := driver.Check(context.Background(), []string{path}, driver.CheckOptions{FmtCheck: true})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !results[0].FmtChecked || results[0].Bag.HasErrors() {
		t.Fatalf("fmt check failed: %+v", results[0].Bag.Items())
	}
}

func TestFormatPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.gard")
	const src = "let   x=1;\nfunction f(a,b){return a+b;}\n"
	writeFile(t, path, src)

	want, err := driver.FormatSource("main.gard", src, format.Options{})
	if err != nil {
		t.Fatalf("format source: %v", err)
	}

	res, err := driver.FormatPaths(context.Background(), []string{dir}, driver.FormatOptions{Check: true})
	if err != nil || len(res) != 1 || !res[0].Changed {
		t.Fatalf("check mode: %+v %v", res, err)
	}
	if data, _ := os.ReadFile(path); string(data) != src {
		t.Fatal("check mode must not touch the file")
	}

	if _, err := driver.FormatPaths(context.Background(), []string{path}, driver.FormatOptions{}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
	res, err = driver.FormatPaths(context.Background(), []string{path}, driver.FormatOptions{Check: true})
	if err != nil || res[0].Changed {
		t.Fatalf("formatted file must be stable: %+v %v", res, err)
	}
}

func TestModuleCacheHitMiss(t *testing.T) {
	c := driver.NewModuleCache(4)
	var d1, d2 [32]byte
	d1[0], d2[0] = 1, 2
	c.Put("m/x", d1, &driver.CheckResult{Path: "m/x", Bag: diag.NewBag(1)})
	if _, ok := c.Get("m/x", d2); ok {
		t.Fatal("expected miss on different content hash")
	}
	got, ok := c.Get("m/x", d1)
	if !ok || got.Path != "m/x" {
		t.Fatal("expected hit")
	}
}
