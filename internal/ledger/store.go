package ledger

import (
	"sort"
	"sync"
)

// Store persists blocks and the account snapshot.
type Store interface {
	// PutBlock writes (or overwrites) a block by number.
	PutBlock(b *Block) error
	// DeleteBlock removes a block; a missing block is not an error.
	DeleteBlock(n uint64) error
	// Blocks returns every stored block in number order.
	Blocks() ([]*Block, error)
	PutAccounts(accounts []*Account) error
	Accounts() ([]*Account, error)
	Close() error
}

// MemoryStore keeps encoded blocks in memory.
type MemoryStore struct {
	mu       sync.Mutex
	blocks   map[uint64][]byte
	accounts map[string]accountWire
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocks: make(map[uint64][]byte), accounts: make(map[string]accountWire)}
}

func (m *MemoryStore) PutBlock(b *Block) error {
	data, err := MarshalBlock(b)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.Number] = data
	return nil
}

func (m *MemoryStore) DeleteBlock(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, n)
	return nil
}

func (m *MemoryStore) Blocks() ([]*Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nums := make([]uint64, 0, len(m.blocks))
	for n := range m.blocks {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	out := make([]*Block, 0, len(nums))
	for _, n := range nums {
		b, err := UnmarshalBlock(m.blocks[n])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MemoryStore) PutAccounts(accounts []*Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range accounts {
		m.accounts[a.Address] = a.Clone().wire()
	}
	return nil
}

func (m *MemoryStore) Accounts() ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addrs := make([]string, 0, len(m.accounts))
	for a := range m.accounts {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	out := make([]*Account, 0, len(addrs))
	for _, a := range addrs {
		acct, err := m.accounts[a].account()
		if err != nil {
			return nil, err
		}
		out = append(out, acct.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
