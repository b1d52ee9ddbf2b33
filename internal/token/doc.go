// Package token defines lexical token kinds and trivia for the Gard toolchain.
// Invariants:
//   - Token.Text is the exact source slice covered by Token.Span.
//   - Comments and doc comments never appear in the main stream; they ride along as
//     Token.Leading trivia of the next significant token.
//   - Type names (int, long, string, address, ...) are identifiers, not keywords.
//   - `from` and `as` are contextual: the lexer emits Ident, the parser checks the text.
package token
