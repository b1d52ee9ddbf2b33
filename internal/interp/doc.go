// Package interp is the tree-walking evaluator for Gard.
//
// A Runtime carries every piece of execution state: output, scheduler,
// ledger engine, tracer, module loader and the environment arena. Nothing is
// package-global. Gard code always runs inside a scheduler task; blocking
// builtins (await, sleep, locks, channels) park that task's goroutine.
//
// Errors raised by Gard code are *Thrown values. Go-side failures from the
// scheduler, the ledger and value operations are mapped onto the built-in
// error classes before they reach a catch clause.
package interp
