package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	blockPrefix   = []byte("b")
	accountPrefix = []byte("a")
)

// LevelStore persists the block log in LevelDB. Blocks are keyed by
// "b" + big-endian number so iteration yields them in order.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (or creates) a LevelDB database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open ledger store %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

// NewLevelStore wraps an arbitrary goleveldb storage, e.g. storage.NewMemStorage().
func NewLevelStore(stor storage.Storage) (*LevelStore, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	return &LevelStore{db: db}, nil
}

func blockKey(n uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], n)
	return key
}

func accountKey(addr string) []byte {
	return append(append([]byte{}, accountPrefix...), addr...)
}

func (s *LevelStore) PutBlock(b *Block) error {
	data, err := MarshalBlock(b)
	if err != nil {
		return err
	}
	return s.db.Put(blockKey(b.Number), data, nil)
}

func (s *LevelStore) DeleteBlock(n uint64) error {
	return s.db.Delete(blockKey(n), nil)
}

func (s *LevelStore) Blocks() ([]*Block, error) {
	it := s.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer it.Release()
	var out []*Block
	for it.Next() {
		b, err := UnmarshalBlock(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, it.Error()
}

func (s *LevelStore) PutAccounts(accounts []*Account) error {
	batch := new(leveldb.Batch)
	for _, a := range accounts {
		data, err := msgpack.Marshal(a.wire())
		if err != nil {
			return fmt.Errorf("encode account %s: %w", a.Address, err)
		}
		batch.Put(accountKey(a.Address), data)
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) Accounts() ([]*Account, error) {
	it := s.db.NewIterator(util.BytesPrefix(accountPrefix), nil)
	defer it.Release()
	var out []*Account
	for it.Next() {
		var w accountWire
		if err := msgpack.Unmarshal(it.Value(), &w); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		a, err := w.account()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, it.Error()
}

func (s *LevelStore) Close() error { return s.db.Close() }
