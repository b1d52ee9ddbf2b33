package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrConcurrencyConflict is returned when a transaction reaches an account
	// locked by another in-flight transaction.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrReadOnly is returned by writes inside view calls.
	ErrReadOnly = errors.New("write to ledger state in a read-only call")
	// ErrUnknownAccount is returned when calling an address with no contract code.
	ErrUnknownAccount = errors.New("no contract at address")
	// ErrClosed is returned after Engine.Close.
	ErrClosed = errors.New("ledger closed")
)

// ValidationError is a failed validate(cond, message) check.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// ConservationError means a commit would have created or destroyed native
// balance. It indicates a bug in the caller, not in user code.
type ConservationError struct {
	Before *big.Int
	After  *big.Int
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("balance not conserved: %s before, %s after", e.Before, e.After)
}

// ChainError reports a block whose hash or link does not verify.
type ChainError struct {
	Block  uint64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("block %d: %s", e.Block, e.Reason)
}
