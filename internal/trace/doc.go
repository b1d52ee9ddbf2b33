// Package trace provides leveled structured events for the Gard runtime.
//
// The driver, the scheduler and the ledger engine all emit through one Tracer
// taken from the context, so a single `--trace` flag shows compilation phases,
// task lifecycle and ledger commits in one ordered stream.
//
// # Usage
//
//	gard run --trace=- --trace-level=detail main.gard
//
// # Implementations
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr), text or NDJSON
//   - RingTracer: last N events in memory, dumped when a run fails
//   - MultiTracer: fan-out to several tracers
//
// # Levels and scopes
//
// Levels are off, error, phase, detail and debug. Scopes go from coarse to fine:
//
//   - ScopeDriver: CLI entry points
//   - ScopePhase: lex, parse, evaluate
//   - ScopeLedger: transaction commit/rollback, block sealing
//   - ScopeTask: scheduler task lifecycle (spawn, park, wake, finish)
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePhase, "parse", 0)
//	defer span.End("")
package trace
