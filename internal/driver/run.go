package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gard/internal/ast"
	"gard/internal/config"
	"gard/internal/diag"
	"gard/internal/interp"
	"gard/internal/ledger"
	"gard/internal/observ"
	"gard/internal/parser"
	"gard/internal/sched"
	"gard/internal/source"
	"gard/internal/trace"
	"gard/internal/value"
)

// RunOptions configures CompileAndRun and RunFile.
type RunOptions struct {
	// Config supplies scheduler, ledger and genesis settings; nil means
	// config.Default().
	Config *config.Config
	Out    io.Writer
	// Tracer overrides the tracer found in the context.
	Tracer  trace.Tracer
	Loader  interp.Loader
	Sender  string
	Natives map[string]interp.NativeFunc
	// Observer sees phase boundaries as they happen.
	Observer       func(PhaseEvent)
	MaxDiagnostics int
	// KeepLedger leaves the engine open in RunResult.Ledger; otherwise it is
	// closed before returning.
	KeepLedger bool
}

// RunResult is everything a run produced.
type RunResult struct {
	FileSet *source.FileSet
	Value   value.Value
	// Errors holds the main task's failure first, then failures of
	// background tasks nobody awaited.
	Errors   []error
	Bag      *diag.Bag
	Receipts []*ledger.Receipt
	Ledger   *ledger.Engine
	Timing   observ.Report
}

// CompileAndRun parses src and executes it as the main task.
func CompileAndRun(ctx context.Context, src string, opts RunOptions) (value.Value, []error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.gard", []byte(src))
	res := execute(ctx, fs, id, opts)
	return res.Value, res.Errors
}

// RunFile loads path from disk and runs it. Imports resolve relative to the
// file's directory unless opts.Loader is set. The error is for I/O and
// configuration problems; program failures are in RunResult.
func RunFile(ctx context.Context, path string, opts RunOptions) (*RunResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.Loader == nil {
		opts.Loader = interp.DirLoader{Root: filepath.Dir(path)}
	}
	res := execute(ctx, fs, id, opts)
	var cfgErr *configError
	for _, e := range res.Errors {
		if errors.As(e, &cfgErr) {
			return nil, cfgErr.err
		}
	}
	return res, nil
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// PhaseEvent is sent to RunOptions.Observer twice per phase: once on entry
// with Done unset, once on exit with the elapsed time and the phase note.
type PhaseEvent struct {
	Name    string
	Done    bool
	Elapsed time.Duration
	Note    string
}

type phases struct {
	timer    *observ.Timer
	tracer   trace.Tracer
	parent   uint64
	observer func(PhaseEvent)
}

func (p *phases) notify(ev PhaseEvent) {
	if p.observer != nil {
		p.observer(ev)
	}
}

func (p *phases) run(name string, fn func() string) {
	p.notify(PhaseEvent{Name: name})
	span := trace.Begin(p.tracer, trace.ScopePhase, name, p.parent)
	stop := p.timer.Start(name)
	start := time.Now()
	note := fn()
	stop(note)
	span.End(note)
	p.notify(PhaseEvent{Name: name, Done: true, Elapsed: time.Since(start), Note: note})
}

func execute(ctx context.Context, fs *source.FileSet, id source.FileID, opts RunOptions) *RunResult {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	res := &RunResult{FileSet: fs, Bag: diag.NewBag(opts.MaxDiagnostics), Value: value.Null}
	root := trace.Begin(tracer, trace.ScopeDriver, "run", trace.ParentFrom(ctx))
	ph := &phases{timer: observ.NewTimer(), tracer: tracer, parent: root.ID(), observer: opts.Observer}
	defer func() {
		res.Timing = ph.timer.Report()
		root.End(fmt.Sprintf("%d errors", len(res.Errors)))
	}()

	fail := func(err error) {
		res.Errors = append(res.Errors, err)
		res.Bag.Add(diag.FromError(err))
	}

	var file *ast.File
	ph.run("parse", func() string {
		f, err := parser.ParseFile(fs, id)
		if err != nil {
			fail(err)
			return "failed"
		}
		file = f
		return fmt.Sprintf("%d items", len(f.Items))
	})
	if file == nil {
		return res
	}

	var rt *interp.Runtime
	ph.run("setup", func() string {
		var err error
		rt, err = newRuntime(cfg, tracer, opts, fs)
		if err != nil {
			fail(&configError{err: err})
			return "failed"
		}
		return cfg.Ledger.Store
	})
	if rt == nil {
		return res
	}
	res.Ledger = rt.Ledger()
	if !opts.KeepLedger {
		defer func() {
			if err := rt.Ledger().Close(); err != nil {
				fail(err)
			}
			res.Ledger = nil
		}()
	}

	ph.run("eval", func() string {
		v, err := rt.Run(trace.WithParent(ctx, root.ID()), file)
		res.Value = v
		if err != nil {
			fail(err)
		}
		for _, bg := range rt.Failures() {
			fail(bg)
		}
		res.Receipts = rt.Receipts()
		return fmt.Sprintf("%d transactions", len(res.Receipts))
	})
	return res
}

func newRuntime(cfg config.Config, tracer trace.Tracer, opts RunOptions, fs *source.FileSet) (*interp.Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	so, err := cfg.SchedOptions(tracer)
	if err != nil {
		return nil, err
	}
	s := sched.New(so)
	lo, err := cfg.LedgerOptions(tracer)
	if err != nil {
		return nil, err
	}
	eng, err := ledger.NewEngine(s, lo)
	if err != nil {
		_ = lo.Store.Close()
		return nil, err
	}
	genesis, err := cfg.GenesisBalances()
	if err == nil {
		err = eng.Genesis(genesis)
	}
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	sender := opts.Sender
	if sender == "" {
		sender = cfg.Ledger.DefaultSender
	}
	rt, err := interp.New(interp.Options{
		Out:     opts.Out,
		Sched:   s,
		Ledger:  eng,
		Tracer:  tracer,
		Loader:  opts.Loader,
		Files:   fs,
		Sender:  sender,
		Natives: opts.Natives,
	})
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	return rt, nil
}
