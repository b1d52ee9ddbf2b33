package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"

	"gard/internal/sched"
	"gard/internal/trace"
	"gard/internal/value"
)

// Contract runs the body of a transaction against its working set.
type Contract interface {
	Invoke(w *Working, tx *Transaction) (value.Value, error)
}

// ContractFunc adapts a function to Contract.
type ContractFunc func(w *Working, tx *Transaction) (value.Value, error)

func (f ContractFunc) Invoke(w *Working, tx *Transaction) (value.Value, error) { return f(w, tx) }

// Options configures an Engine.
type Options struct {
	// BlockSize is the number of transactions that seals a block.
	BlockSize int
	Store     Store
	Tracer    trace.Tracer
}

// Engine owns ledger state. Accounts are mutated only by committing a
// Working set.
type Engine struct {
	sched    *sched.Scheduler
	opts     Options
	store    Store
	tracer   trace.Tracer
	accounts map[string]*Account
	locks    map[string]*sched.Lock
	holders  map[string]*Working
	chain    *Chain
	closed   bool
}

// NewEngine restores state from opts.Store (memory when nil). s may be nil
// when transactions never run inside scheduler tasks.
func NewEngine(s *sched.Scheduler, opts Options) (*Engine, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 16
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	e := &Engine{
		sched:    s,
		opts:     opts,
		store:    opts.Store,
		tracer:   opts.Tracer,
		accounts: make(map[string]*Account),
		locks:    make(map[string]*sched.Lock),
		holders:  make(map[string]*Working),
	}
	blocks, err := e.store.Blocks()
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	e.chain = Restore(opts.BlockSize, blocks)
	accounts, err := e.store.Accounts()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	for _, a := range accounts {
		e.accounts[a.Address] = a
	}
	return e, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

// Chain exposes the block log.
func (e *Engine) Chain() *Chain { return e.chain }

// Genesis credits initial balances outside any transaction. Existing
// accounts are left alone so a restored ledger is not credited twice.
func (e *Engine) Genesis(balances map[string]*big.Int) error {
	var fresh []*Account
	addrs := make([]string, 0, len(balances))
	for a := range balances {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		if _, ok := e.accounts[addr]; ok {
			continue
		}
		a := NewAccount(addr)
		a.Balance.Set(balances[addr])
		e.accounts[addr] = a
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return nil
	}
	return e.store.PutAccounts(fresh)
}

// Account returns a copy of the committed account, nil when unknown.
func (e *Engine) Account(addr string) *Account {
	a := e.accounts[addr]
	if a == nil {
		return nil
	}
	return a.Clone()
}

// BalanceOf returns the committed native balance.
func (e *Engine) BalanceOf(addr string) *big.Int {
	if a := e.accounts[addr]; a != nil {
		return new(big.Int).Set(a.Balance)
	}
	return new(big.Int)
}

// Accounts returns copies of all committed accounts sorted by address.
func (e *Engine) Accounts() []*Account {
	out := make([]*Account, 0, len(e.accounts))
	for _, a := range e.accounts {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Total sums every committed native balance.
func (e *Engine) Total() *big.Int {
	sum := new(big.Int)
	for _, a := range e.accounts {
		sum.Add(sum, a.Balance)
	}
	return sum
}

// ContractAddress derives the address of the next contract deployed by from.
func (e *Engine) ContractAddress(from string) string {
	var nonce uint64
	if a := e.accounts[from]; a != nil {
		nonce = a.Nonce
	}
	h := Keccak256([]byte(from), []byte(strconv.FormatUint(nonce, 10)))
	return "0x" + h.Hex()[2+24:]
}

// ApplyTransaction runs tx: native value moves from From to To, then c (if
// any) runs; the result commits atomically or rolls back with no mutation.
func (e *Engine) ApplyTransaction(ctx context.Context, tx *Transaction, c Contract) *Receipt {
	rcpt := &Receipt{TxID: tx.ID, Status: StatusRolledBack}
	if e.closed {
		return e.rollback(tx, rcpt, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return e.rollback(tx, rcpt, err)
	}
	w := e.newWorking(tx, false)
	defer w.release()
	if err := w.acquire(tx.From, tx.To); err != nil {
		return e.rollback(tx, rcpt, err)
	}
	if tx.Code != "" {
		if err := w.deploy(tx.From, tx.To, tx.Code); err != nil {
			return e.rollback(tx, rcpt, err)
		}
	}
	if tx.Amount.Sign() != 0 {
		if err := w.Transfer(tx.From, tx.To, tx.Amount); err != nil {
			return e.rollback(tx, rcpt, err)
		}
	}
	ret := value.Null
	if c != nil {
		v, err := c.Invoke(w, tx)
		if err == nil {
			err = w.failed
		}
		if err != nil {
			rcpt.Events = nil
			return e.rollback(tx, rcpt, err)
		}
		ret = v
	}
	if err := ctx.Err(); err != nil {
		return e.rollback(tx, rcpt, err)
	}
	block, err := e.commit(w)
	if err != nil {
		return e.rollback(tx, rcpt, err)
	}
	rcpt.Status = StatusCommitted
	rcpt.Events = w.events
	rcpt.Return = ret
	rcpt.Block = block
	return rcpt
}

// View runs fn against committed state. Writes fail with ErrReadOnly and
// nothing is committed.
func (e *Engine) View(tx *Transaction, fn func(w *Working) (value.Value, error)) (value.Value, error) {
	w := e.newWorking(tx, true)
	return fn(w)
}

func (e *Engine) newWorking(tx *Transaction, readOnly bool) *Working {
	return &Working{
		e:        e,
		tx:       tx,
		readOnly: readOnly,
		accounts: make(map[string]*Account),
		touched:  mapset.NewThreadUnsafeSet[string](),
	}
}

func (e *Engine) lockFor(addr string) *sched.Lock {
	l := e.locks[addr]
	if l == nil && e.sched != nil {
		l = e.sched.NewLock()
		e.locks[addr] = l
	}
	return l
}

func (e *Engine) commit(w *Working) (uint64, error) {
	before, after := new(big.Int), new(big.Int)
	for addr, a := range w.accounts {
		if old := e.accounts[addr]; old != nil {
			before.Add(before, old.Balance)
		}
		after.Add(after, a.Balance)
	}
	if before.Cmp(after) != 0 {
		return 0, &ConservationError{Before: before, After: after}
	}

	w.tx.Status = StatusCommitted
	block, sealed, err := e.chain.Append(w.tx)
	if err != nil {
		w.tx.Status = StatusPending
		return 0, err
	}
	changed := make([]*Account, 0, len(w.accounts))
	for _, addr := range w.touched.ToSlice() {
		if a := w.accounts[addr]; a != nil {
			changed = append(changed, a)
		}
	}
	// сначала хранилище, потом память: при ошибке ничего не применено
	if err := e.persist(block, sealed, changed); err != nil {
		e.chain.undo(block, sealed)
		if rerr := e.unpersist(block, sealed); rerr != nil {
			trace.Point(e.tracer, trace.ScopeLedger, "ledger.store_error", rerr.Error())
		}
		w.tx.Status = StatusPending
		return 0, fmt.Errorf("persist block %d: %w", block.Number, err)
	}
	for _, a := range changed {
		e.accounts[a.Address] = a
	}
	trace.Point(e.tracer, trace.ScopeLedger, "ledger.commit", w.tx.String(),
		trace.A("block", strconv.FormatUint(block.Number, 10)),
		trace.A("hash", block.Hash.Short()))
	if sealed {
		trace.Point(e.tracer, trace.ScopeLedger, "ledger.seal", block.Hash.Hex(),
			trace.A("block", strconv.FormatUint(block.Number, 10)),
			trace.A("txs", strconv.Itoa(len(block.Txs))))
	}
	return block.Number, nil
}

// persist writes the blocks first and the accounts last in one batch, so a
// failure leaves at most block records to revert.
func (e *Engine) persist(block *Block, sealed bool, changed []*Account) error {
	if err := e.store.PutBlock(block); err != nil {
		return err
	}
	if sealed {
		if err := e.store.PutBlock(e.chain.Head()); err != nil {
			return err
		}
	}
	return e.store.PutAccounts(changed)
}

// unpersist rewrites block after Chain.undo and drops the block opened by
// sealing it.
func (e *Engine) unpersist(block *Block, sealed bool) error {
	var errs []error
	errs = append(errs, e.store.PutBlock(block))
	if sealed {
		errs = append(errs, e.store.DeleteBlock(block.Number+1))
	}
	return errors.Join(errs...)
}

func (e *Engine) rollback(tx *Transaction, rcpt *Receipt, err error) *Receipt {
	tx.Status = StatusRolledBack
	rcpt.Status = StatusRolledBack
	rcpt.Err = err
	rcpt.Reason = err.Error()
	var ve *ValidationError
	if errors.As(err, &ve) {
		rcpt.Reason = ve.Message
	}
	rcpt.Events = nil
	trace.Point(e.tracer, trace.ScopeLedger, "ledger.rollback", rcpt.Reason, trace.A("tx", tx.ID.String()))
	return rcpt
}
