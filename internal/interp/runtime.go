package interp

import (
	"context"
	"errors"
	"io"
	"math/big"
	"os"

	"gard/internal/ast"
	"gard/internal/ledger"
	"gard/internal/sched"
	"gard/internal/source"
	"gard/internal/trace"
	"gard/internal/value"
)

// Options configures a Runtime.
type Options struct {
	Out    io.Writer
	Sched  *sched.Scheduler
	Ledger *ledger.Engine
	Tracer trace.Tracer
	Loader Loader
	Files  *source.FileSet
	// Sender is msg.sender for top-level contract calls.
	Sender string
	// MaxDepth bounds call nesting.
	MaxDepth int
	// Natives extends or overrides the builtin table.
	Natives map[string]NativeFunc
}

// Runtime is one Gard execution context.
type Runtime struct {
	out    io.Writer
	sched  *sched.Scheduler
	ledger *ledger.Engine
	tracer trace.Tracer
	loader Loader
	files  *source.FileSet
	sender string
	depth  int

	env      *Env
	global   FrameID
	builtins map[string]value.Value

	errClasses map[string]*value.Class
	msgClass   *value.Class
	contracts  map[string]*value.Class // contract name -> class
	modules    *moduleCache

	runCtx   context.Context
	receipts []*ledger.Receipt
	observed map[*sched.Task]bool
	main     *sched.Task
}

// taskCtx is the per-task call context kept in sched.Task.Local.
type taskCtx struct {
	sender   string
	value    *big.Int // pending withValue amount
	working  *ledger.Working
	readOnly bool
	depth    int

	// inside a contract method: its address and msg.sender
	self      string
	msgSender string
}

// takeValue consumes the pending withValue amount.
func (tc *taskCtx) takeValue() *big.Int {
	v := tc.value
	tc.value = nil
	if v == nil {
		return new(big.Int)
	}
	return v
}

// New builds a runtime. A nil scheduler or ledger gets a default one.
func New(opts Options) (*Runtime, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.Sched == nil {
		opts.Sched = sched.New(sched.Options{Tracer: opts.Tracer})
	}
	if opts.Ledger == nil {
		eng, err := ledger.NewEngine(opts.Sched, ledger.Options{Tracer: opts.Tracer})
		if err != nil {
			return nil, err
		}
		opts.Ledger = eng
	}
	if opts.Loader == nil {
		opts.Loader = MapLoader{}
	}
	if opts.Files == nil {
		opts.Files = source.NewFileSet()
	}
	if opts.Sender == "" {
		opts.Sender = "main"
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 2000
	}
	rt := &Runtime{
		out:        opts.Out,
		sched:      opts.Sched,
		ledger:     opts.Ledger,
		tracer:     opts.Tracer,
		loader:     opts.Loader,
		files:      opts.Files,
		sender:     opts.Sender,
		depth:      opts.MaxDepth,
		env:        newEnv(),
		errClasses: make(map[string]*value.Class),
		contracts:  make(map[string]*value.Class),
		observed:   make(map[*sched.Task]bool),
		runCtx:     context.Background(),
	}
	rt.modules = newModuleCache(rt)
	rt.global = rt.env.Push(0, true)
	rt.installErrors()
	rt.installBuiltins(opts.Natives)
	return rt, nil
}

// Scheduler exposes the runtime's scheduler.
func (rt *Runtime) Scheduler() *sched.Scheduler { return rt.sched }

// Ledger exposes the runtime's ledger engine.
func (rt *Runtime) Ledger() *ledger.Engine { return rt.ledger }

// Receipts lists every top-level ledger transaction the program applied.
func (rt *Runtime) Receipts() []*ledger.Receipt { return rt.receipts }

func (rt *Runtime) installErrors() {
	for _, e := range builtinErrors {
		var super *value.Class
		if e.super != "" {
			super = rt.errClasses[e.super]
		}
		c := value.NewClass(e.name, super)
		if e.super == "" {
			c.MarkErrorRoot()
			c.Data = &classInfo{nativeCtor: errorCtor}
		}
		rt.errClasses[e.name] = c
		rt.env.Declare(rt.global, e.name, ast.DeclConst, value.FromClass(c), true)
	}
	rt.msgClass = value.NewClass("Message", nil)
}

func errorCtor(rt *Runtime, this *value.Object, args []value.Value) error {
	msg := value.Str("")
	if len(args) > 0 {
		msg = value.Str(args[0].String())
	}
	this.Set("message", msg)
	return nil
}

// Run executes a parsed file as the main task and drives the scheduler
// until every task finished. It returns the main task's outcome; a stalled
// scheduler is reported through the error.
func (rt *Runtime) Run(ctx context.Context, f *ast.File) (value.Value, error) {
	rt.runCtx = ctx
	rt.main = rt.sched.Spawn("main", func(t *sched.Task) (any, error) {
		t.Local = &taskCtx{sender: rt.sender}
		return rt.execModule(f, rt.global, nil)
	})
	runErr := rt.sched.Run(ctx)
	res, err := rt.main.Result()
	if err != nil {
		err = rt.throwable(err, source.Span{})
	}
	if runErr != nil {
		err = errors.Join(err, runErr)
	}
	v, _ := res.(value.Value)
	return v, err
}

// Failures returns errors of background tasks that failed without anybody
// awaiting them.
func (rt *Runtime) Failures() []error {
	var out []error
	for _, t := range rt.sched.Tasks() {
		if t == rt.main || rt.observed[t] || t.Cancelled() {
			continue
		}
		if _, err := t.Result(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// ctx returns the running task's call context.
func (rt *Runtime) ctx() *taskCtx {
	if t := rt.sched.Current(); t != nil {
		if tc, ok := t.Local.(*taskCtx); ok {
			return tc
		}
		tc := &taskCtx{sender: rt.sender}
		t.Local = tc
		return tc
	}
	return &taskCtx{sender: rt.sender}
}

// spawn starts fn as a new task inheriting the caller's sender.
func (rt *Runtime) spawn(name string, fn func() (value.Value, error)) *sched.Task {
	sender := rt.ctx().sender
	return rt.sched.Spawn(name, func(t *sched.Task) (any, error) {
		t.Local = &taskCtx{sender: sender}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

func (rt *Runtime) write(s string) {
	_, _ = io.WriteString(rt.out, s)
}
