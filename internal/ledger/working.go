package ledger

import (
	"fmt"
	"math/big"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"gard/internal/value"
)

// Working is the per-transaction view of the ledger: copy-on-write copies of
// every touched account plus the events emitted so far.
type Working struct {
	e        *Engine
	tx       *Transaction
	readOnly bool
	// validating: reads go to committed state
	validating bool

	accounts map[string]*Account
	touched  mapset.Set[string]
	held     []heldLock
	events   []Event
	// failed: первый проваленный validate; транзакция откатывается даже если ошибку поймали
	failed error
}

type heldLock struct {
	addr   string
	locked bool
}

// Tx returns the transaction being applied.
func (w *Working) Tx() *Transaction { return w.tx }

// ReadOnly reports whether this is a view call.
func (w *Working) ReadOnly() bool { return w.readOnly }

// Validating switches reads to committed state and returns the previous
// setting.
func (w *Working) Validating(on bool) bool {
	prev := w.validating
	w.validating = on
	return prev
}

// Validate fails the transaction with message unless cond holds.
func (w *Working) Validate(cond bool, message string) error {
	if cond {
		return nil
	}
	ve := &ValidationError{Message: message}
	w.Fail(ve)
	return ve
}

// Fail marks the transaction as failed. ApplyTransaction rolls it back
// whatever the contract does with the error afterwards.
func (w *Working) Fail(err error) {
	if w.failed == nil && err != nil {
		w.failed = err
	}
}

// Failed returns the first failure recorded by Fail.
func (w *Working) Failed() error { return w.failed }

// acquire takes the top-level locks in address order, waiting FIFO behind
// other transactions.
func (w *Working) acquire(addrs ...string) error {
	uniq := mapset.NewThreadUnsafeSet[string]()
	for _, a := range addrs {
		if a != "" {
			uniq.Add(a)
		}
	}
	sorted := uniq.ToSlice()
	sort.Strings(sorted)
	for _, addr := range sorted {
		if err := w.lock(addr, true); err != nil {
			return err
		}
	}
	return nil
}

func (w *Working) lock(addr string, wait bool) error {
	e := w.e
	if h := e.holders[addr]; h == w {
		return nil
	}
	inTask := e.sched != nil && e.sched.Current() != nil
	locked := false
	if inTask {
		l := e.lockFor(addr)
		if wait {
			if err := l.Acquire(); err != nil {
				return err
			}
		} else if !l.TryAcquire() {
			return fmt.Errorf("%w: account %s", ErrConcurrencyConflict, addr)
		}
		locked = true
	}
	if h := e.holders[addr]; h != nil && h != w {
		if locked {
			e.locks[addr].Release()
		}
		return fmt.Errorf("%w: account %s", ErrConcurrencyConflict, addr)
	}
	e.holders[addr] = w
	w.held = append(w.held, heldLock{addr: addr, locked: locked})
	return nil
}

func (w *Working) release() {
	for i := len(w.held) - 1; i >= 0; i-- {
		h := w.held[i]
		if w.e.holders[h.addr] == w {
			delete(w.e.holders, h.addr)
		}
		if h.locked {
			w.e.locks[h.addr].Release()
		}
	}
	w.held = nil
}

// touch returns the working copy of addr, locking it first.
func (w *Working) touch(addr string) (*Account, error) {
	if a := w.accounts[addr]; a != nil {
		return a, nil
	}
	if err := w.lock(addr, false); err != nil {
		return nil, err
	}
	var a *Account
	if old := w.e.accounts[addr]; old != nil {
		a = old.Clone()
	} else {
		a = NewAccount(addr)
	}
	w.accounts[addr] = a
	w.touched.Add(addr)
	return a, nil
}

func (w *Working) committed(addr string) *Account {
	return w.e.accounts[addr]
}

func (w *Working) readThrough() bool { return w.readOnly || w.validating }

// Load reads a storage slot. Missing slots read as null.
func (w *Working) Load(addr, key string) (value.Value, error) {
	if w.readThrough() {
		if a := w.accounts[addr]; a != nil && !w.validating {
			return a.Storage[key], nil
		}
		if a := w.committed(addr); a != nil {
			return value.DeepCopy(a.Storage[key]), nil
		}
		return value.Null, nil
	}
	a, err := w.touch(addr)
	if err != nil {
		return value.Null, err
	}
	return a.Storage[key], nil
}

// Store writes a storage slot.
func (w *Working) Store(addr, key string, v value.Value) error {
	if w.readOnly {
		return ErrReadOnly
	}
	a, err := w.touch(addr)
	if err != nil {
		return err
	}
	a.Storage[key] = v
	return nil
}

// Code returns the contract class deployed at addr.
func (w *Working) Code(addr string) string {
	if a := w.accounts[addr]; a != nil {
		return a.Code
	}
	if a := w.committed(addr); a != nil {
		return a.Code
	}
	return ""
}

// Balance returns the native balance of addr as seen by this transaction.
func (w *Working) Balance(addr string) (*big.Int, error) {
	if w.readThrough() {
		if a := w.committed(addr); a != nil {
			return new(big.Int).Set(a.Balance), nil
		}
		return new(big.Int), nil
	}
	a, err := w.touch(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(a.Balance), nil
}

// Transfer moves native balance between two accounts.
func (w *Working) Transfer(from, to string, amount *big.Int) error {
	if w.readOnly {
		return ErrReadOnly
	}
	if amount.Sign() < 0 {
		return &ValidationError{Message: "Negative amount"}
	}
	src, err := w.touch(from)
	if err != nil {
		return err
	}
	dst, err := w.touch(to)
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return &ValidationError{Message: "Insufficient balance"}
	}
	src.Balance.Sub(src.Balance, amount)
	dst.Balance.Add(dst.Balance, amount)
	return nil
}

// Emit records an event for the receipt.
func (w *Working) Emit(ev Event) error {
	if w.readOnly {
		return ErrReadOnly
	}
	w.events = append(w.events, ev)
	return nil
}

// Events returns the events emitted so far.
func (w *Working) Events() []Event { return w.events }

func (w *Working) deploy(from, addr, code string) error {
	a, err := w.touch(addr)
	if err != nil {
		return err
	}
	if a.Code != "" {
		return fmt.Errorf("address %s already holds contract %s", addr, a.Code)
	}
	a.Code = code
	sender, err := w.touch(from)
	if err != nil {
		return err
	}
	sender.Nonce++
	return nil
}
