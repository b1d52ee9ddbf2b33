package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/sha3"
)

// Hash is a Keccak-256 digest.
type Hash [32]byte

// Hex renders the hash with a 0x prefix.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// Short renders the first four bytes, for tables.
func (h Hash) Short() string { return "0x" + hex.EncodeToString(h[:4]) }

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool { return h == Hash{} }

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hasher.Write(b)
	}
	var h Hash
	hasher.Sum(h[:0])
	return h
}

// Block is an ordered batch of committed transactions.
type Block struct {
	Number   uint64
	PrevHash Hash
	Txs      []*Transaction
	Hash     Hash
	Sealed   bool
}

// ComputeHash returns keccak256(prevHash || msgpack(transactions)).
func ComputeHash(prev Hash, txs []*Transaction) (Hash, error) {
	wires := make([]txWire, len(txs))
	for i, tx := range txs {
		wires[i] = tx.wire()
	}
	payload, err := msgpack.Marshal(wires)
	if err != nil {
		return Hash{}, fmt.Errorf("encode transactions: %w", err)
	}
	return Keccak256(prev[:], payload), nil
}

// Rehash recomputes b.Hash from its contents.
func (b *Block) Rehash() error {
	h, err := ComputeHash(b.PrevHash, b.Txs)
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}

type blockWire struct {
	Number   uint64   `msgpack:"number"`
	PrevHash []byte   `msgpack:"prev"`
	Txs      []txWire `msgpack:"txs"`
	Hash     []byte   `msgpack:"hash"`
	Sealed   bool     `msgpack:"sealed"`
}

// MarshalBlock encodes a block for storage.
func MarshalBlock(b *Block) ([]byte, error) {
	w := blockWire{Number: b.Number, PrevHash: b.PrevHash[:], Hash: b.Hash[:], Sealed: b.Sealed}
	w.Txs = make([]txWire, len(b.Txs))
	for i, tx := range b.Txs {
		w.Txs[i] = tx.wire()
	}
	return msgpack.Marshal(&w)
}

// UnmarshalBlock decodes a stored block. The hash is taken as stored; use
// Chain.Verify to check it.
func UnmarshalBlock(data []byte) (*Block, error) {
	var w blockWire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	b := &Block{Number: w.Number, Sealed: w.Sealed}
	copy(b.PrevHash[:], w.PrevHash)
	copy(b.Hash[:], w.Hash)
	for _, tw := range w.Txs {
		tx, err := tw.tx()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", w.Number, err)
		}
		b.Txs = append(b.Txs, tx)
	}
	return b, nil
}

// Chain is the append-only block log. The last block is open until it
// reaches the block size.
type Chain struct {
	blocks    []*Block
	blockSize int
}

// NewChain starts a chain with one empty open block.
func NewChain(blockSize int) *Chain {
	if blockSize < 1 {
		blockSize = 1
	}
	c := &Chain{blockSize: blockSize}
	c.blocks = []*Block{c.genesis()}
	return c
}

func (c *Chain) genesis() *Block {
	b := &Block{Number: 0}
	_ = b.Rehash()
	return b
}

// Restore rebuilds a chain from stored blocks.
func Restore(blockSize int, blocks []*Block) *Chain {
	c := NewChain(blockSize)
	if len(blocks) > 0 {
		c.blocks = blocks
	}
	if last := c.Head(); last.Sealed {
		c.open(last)
	}
	return c
}

// Head returns the open block.
func (c *Chain) Head() *Block { return c.blocks[len(c.blocks)-1] }

// Blocks returns every block, the open one last.
func (c *Chain) Blocks() []*Block { return c.blocks }

// Len returns the number of committed transactions in the chain.
func (c *Chain) Len() int {
	n := 0
	for _, b := range c.blocks {
		n += len(b.Txs)
	}
	return n
}

// Append adds a committed transaction to the open block and rehashes it.
// It returns the block the transaction landed in and whether that block was
// sealed by this append.
func (c *Chain) Append(tx *Transaction) (*Block, bool, error) {
	head := c.Head()
	head.Txs = append(head.Txs, tx)
	if err := head.Rehash(); err != nil {
		head.Txs = head.Txs[:len(head.Txs)-1]
		return nil, false, err
	}
	if len(head.Txs) < c.blockSize {
		return head, false, nil
	}
	head.Sealed = true
	c.open(head)
	return head, true, nil
}

// undo reverts the last Append that landed in b.
func (c *Chain) undo(b *Block, sealed bool) {
	if sealed {
		c.blocks = c.blocks[:len(c.blocks)-1]
		b.Sealed = false
	}
	b.Txs = b.Txs[:len(b.Txs)-1]
	_ = b.Rehash()
}

func (c *Chain) open(prev *Block) {
	b := &Block{Number: prev.Number + 1, PrevHash: prev.Hash}
	_ = b.Rehash()
	c.blocks = append(c.blocks, b)
}

// Verify recomputes every block hash and checks every prevHash link.
func (c *Chain) Verify() error {
	return VerifyBlocks(c.blocks)
}

// VerifyBlocks checks a block sequence as stored.
func VerifyBlocks(blocks []*Block) error {
	var prev *Block
	for _, b := range blocks {
		h, err := ComputeHash(b.PrevHash, b.Txs)
		if err != nil {
			return &ChainError{Block: b.Number, Reason: err.Error()}
		}
		if h != b.Hash {
			return &ChainError{Block: b.Number, Reason: fmt.Sprintf("hash mismatch: stored %s, computed %s", b.Hash.Short(), h.Short())}
		}
		if prev == nil {
			if !b.PrevHash.IsZero() {
				return &ChainError{Block: b.Number, Reason: "first block has a parent hash"}
			}
		} else {
			if b.Number != prev.Number+1 {
				return &ChainError{Block: b.Number, Reason: fmt.Sprintf("expected block %d", prev.Number+1)}
			}
			if b.PrevHash != prev.Hash {
				return &ChainError{Block: b.Number, Reason: "prevHash does not link to block " + fmt.Sprint(prev.Number)}
			}
		}
		prev = b
	}
	return nil
}
