// Package ledger applies contract calls as validated, atomic transactions.
//
// Every transaction runs against a Working set: copy-on-write copies of the
// accounts it touches. validate conditions read committed state. A failure
// anywhere discards the working set, so rolled-back transactions mutate
// nothing. Commit checks that native balances are conserved, swaps the copies
// in and appends the transaction to the open block, whose hash is
// keccak256(prevHash || msgpack(transactions)).
//
// Mutating calls take a per-account lock (a sched.Lock) for the whole
// validate+commit window, acquired in address order so transactions on one
// account are serialized in arrival order. A nested call that reaches an
// account held by another in-flight transaction fails with
// ErrConcurrencyConflict; nothing is retried.
package ledger
