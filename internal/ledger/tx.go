package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"gard/internal/value"
)

// Status is a transaction outcome.
type Status uint8

const (
	StatusPending Status = iota
	StatusCommitted
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Payload is the contract call carried by a transaction. An empty Method is a
// plain native transfer.
type Payload struct {
	Method string
	Args   []value.Value
}

// Transaction is one ledger call.
type Transaction struct {
	ID      uuid.UUID
	From    string
	To      string
	Amount  *big.Int
	Payload Payload
	// Code is set on deployments: the contract class installed at To.
	Code   string
	Status Status
}

// NewTransaction builds a pending transaction with a fresh id.
func NewTransaction(from, to string, amount *big.Int, method string, args ...value.Value) *Transaction {
	if amount == nil {
		amount = new(big.Int)
	}
	return &Transaction{
		ID:      uuid.New(),
		From:    from,
		To:      to,
		Amount:  amount,
		Payload: Payload{Method: method, Args: args},
	}
}

func (tx *Transaction) String() string {
	call := "transfer"
	if tx.Payload.Method != "" {
		call = tx.Payload.Method
	}
	return fmt.Sprintf("%s %s -> %s : %s (%s)", tx.ID, tx.From, tx.To, tx.Amount, call)
}

type txWire struct {
	ID     string        `msgpack:"id"`
	From   string        `msgpack:"from"`
	To     string        `msgpack:"to"`
	Amount string        `msgpack:"amount"`
	Method string        `msgpack:"method,omitempty"`
	Args   []value.Value `msgpack:"args,omitempty"`
	Code   string        `msgpack:"code,omitempty"`
	Status uint8         `msgpack:"status"`
}

func (tx *Transaction) wire() txWire {
	return txWire{
		ID:     tx.ID.String(),
		From:   tx.From,
		To:     tx.To,
		Amount: tx.Amount.String(),
		Method: tx.Payload.Method,
		Args:   tx.Payload.Args,
		Code:   tx.Code,
		Status: uint8(tx.Status),
	}
}

func (w txWire) tx() (*Transaction, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction id: %w", err)
	}
	amount, ok := new(big.Int).SetString(w.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("transaction %s: bad amount %q", w.ID, w.Amount)
	}
	return &Transaction{
		ID:      id,
		From:    w.From,
		To:      w.To,
		Amount:  amount,
		Payload: Payload{Method: w.Method, Args: w.Args},
		Code:    w.Code,
		Status:  Status(w.Status),
	}, nil
}

// Event is one emit inside a transaction.
type Event struct {
	Contract string
	Name     string
	Fields   []EventField
}

// EventField is a named event argument.
type EventField struct {
	Name  string
	Value value.Value
}

func (e Event) String() string {
	s := e.Name + "("
	for i, f := range e.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.Name + ": " + f.Value.Repr()
	}
	return s + ")"
}

// Receipt is the outcome of ApplyTransaction.
type Receipt struct {
	TxID   uuid.UUID
	Status Status
	// Reason is the rollback cause; Err carries the error itself.
	Reason string
	Err    error
	Events []Event
	Return value.Value
	Block  uint64
}

// OK reports whether the transaction committed.
func (r *Receipt) OK() bool { return r.Status == StatusCommitted }
