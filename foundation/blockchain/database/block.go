package database

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ZeroHash represents the previous hash recorded in the genesis block.
var ZeroHash = common.Hash{}

// =============================================================================

// Block represents a single unit of history in the chain. A Block is a value
// and every field is immutable once the hash has been computed.
type Block struct {
	Index     uint64      `json:"index"`     // Position of the block in the chain, 0 for genesis.
	TimeStamp uint64      `json:"timestamp"` // Unix milliseconds when the block was created.
	Data      string      `json:"data"`      // Opaque payload carried by the block.
	PrevHash  common.Hash `json:"prev_hash"` // Hash of the previous block in the chain.
	Nonce     uint64      `json:"nonce"`     // Value identified to solve the hash solution.
	Hash      common.Hash `json:"hash"`      // Hash committed to all the fields above.
}

// NewBlock constructs a finalized block, computing the hash from the
// specified fields.
func NewBlock(index uint64, timeStamp uint64, data string, prevHash common.Hash, nonce uint64) Block {
	return Block{
		Index:     index,
		TimeStamp: timeStamp,
		Data:      data,
		PrevHash:  prevHash,
		Nonce:     nonce,
		Hash:      ComputeHash(index, timeStamp, data, prevHash, nonce),
	}
}

// NewGenesisBlock constructs the genesis block all nodes agree on.
func NewGenesisBlock(gen genesis.Genesis) Block {
	return NewBlock(0, uint64(gen.Date.UTC().UnixMilli()), gen.Data, ZeroHash, 0)
}

// Verify recomputes the hash from the stored fields and reports if it
// matches the stored hash. It does not check linkage or work.
func (b Block) Verify() bool {
	return b.Hash == ComputeHash(b.Index, b.TimeStamp, b.Data, b.PrevHash, b.Nonce)
}

// Time returns the block timestamp as a time value.
func (b Block) Time() time.Time {
	return time.UnixMilli(int64(b.TimeStamp)).UTC()
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d]:%s", b.Index, b.Hash.TerminalString())
}

// =============================================================================

// hashInput is the canonical form of a block used to produce its hash.
type hashInput struct {
	Index     uint64
	TimeStamp uint64
	Data      string
	PrevHash  common.Hash
	Nonce     uint64
}

// ComputeHash returns the sha256 hash of the RLP encoding of the fields in a
// fixed order. RLP length prefixes every item so two different sequences of
// fields can't produce the same encoding.
func ComputeHash(index uint64, timeStamp uint64, data string, prevHash common.Hash, nonce uint64) common.Hash {
	in := hashInput{
		Index:     index,
		TimeStamp: timeStamp,
		Data:      data,
		PrevHash:  prevHash,
		Nonce:     nonce,
	}

	enc, err := rlp.EncodeToBytes(&in)
	if err != nil {
		return ZeroHash
	}

	return common.Hash(sha256.Sum256(enc))
}

// LeadingZeroNibbles counts the number of leading zero hex digits in the hash.
func LeadingZeroNibbles(hash common.Hash) int {
	var n int
	for _, b := range hash {
		switch {
		case b == 0:
			n += 2
			continue
		case b>>4 == 0:
			n++
		}
		break
	}

	return n
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0 hex digits.
func IsHashSolved(difficulty uint16, hash common.Hash) bool {
	return LeadingZeroNibbles(hash) >= int(difficulty)
}
