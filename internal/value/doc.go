// Package value defines the runtime values of Gard programs.
//
// Value is a closed tagged union: Kind says which payload is meaningful.
// Scalars (numbers, bool, char, string, address) are immutable and compare by
// content. Arrays, maps, sets and objects are mutable through their owner and
// compare by identity. Handles (tasks, locks, channels) carry an opaque
// pointer owned by the scheduler; the interpreter unwraps them.
package value
