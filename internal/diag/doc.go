// Package diag defines the diagnostic model shared by the lexer, parser,
// evaluator and ledger when they report to tooling.
//
// Producers emit through the Reporter interface; the Bag collects, sorts and
// deduplicates. Rendering lives in internal/diagfmt.
//
// Codes are grouped by thousand: LEX1xxx, SYN2xxx, RUN3xxx, LED4xxx, CFG5xxx.
package diag
