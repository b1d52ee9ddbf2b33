package ledger

import (
	"math/big"
	"sort"

	"gard/internal/value"
)

// Account is one ledger entry: native balance plus contract storage.
type Account struct {
	Address string
	Balance *big.Int
	Nonce   uint64
	// Code names the contract class deployed at the address ("" for plain
	// accounts).
	Code    string
	Storage map[string]value.Value
}

// NewAccount returns an empty account.
func NewAccount(addr string) *Account {
	return &Account{Address: addr, Balance: new(big.Int), Storage: make(map[string]value.Value)}
}

// Clone deep-copies the account, storage included.
func (a *Account) Clone() *Account {
	c := &Account{
		Address: a.Address,
		Balance: new(big.Int).Set(a.Balance),
		Nonce:   a.Nonce,
		Code:    a.Code,
		Storage: make(map[string]value.Value, len(a.Storage)),
	}
	for k, v := range a.Storage {
		c.Storage[k] = value.DeepCopy(v)
	}
	return c
}

// IsContract reports whether code is deployed at the account.
func (a *Account) IsContract() bool { return a.Code != "" }

type storageEntry struct {
	Key   string      `msgpack:"k"`
	Value value.Value `msgpack:"v"`
}

type accountWire struct {
	Address string         `msgpack:"address"`
	Balance string         `msgpack:"balance"`
	Nonce   uint64         `msgpack:"nonce"`
	Code    string         `msgpack:"code,omitempty"`
	Storage []storageEntry `msgpack:"storage"`
}

func (a *Account) wire() accountWire {
	w := accountWire{Address: a.Address, Balance: a.Balance.String(), Nonce: a.Nonce, Code: a.Code}
	keys := make([]string, 0, len(a.Storage))
	for k := range a.Storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.Storage = append(w.Storage, storageEntry{Key: k, Value: a.Storage[k]})
	}
	return w
}

func (w accountWire) account() (*Account, error) {
	bal, ok := new(big.Int).SetString(w.Balance, 10)
	if !ok {
		return nil, &ChainError{Reason: "account " + w.Address + ": bad balance " + w.Balance}
	}
	a := &Account{Address: w.Address, Balance: bal, Nonce: w.Nonce, Code: w.Code, Storage: make(map[string]value.Value, len(w.Storage))}
	for _, e := range w.Storage {
		a.Storage[e.Key] = e.Value
	}
	return a, nil
}
