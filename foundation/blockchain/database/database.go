// Package database handles the in memory blockchain and owns the rules for
// validating blocks and replacing the chain.
package database

import (
	"fmt"

	"github.com/ardanlabs/powmesh/foundation/blockchain/genesis"
)

// Blockchain represents an ordered sequence of blocks starting with the
// genesis block. Blockchain is not safe for concurrent use, the owner is
// expected to serialize access.
type Blockchain struct {
	genesis    Block
	difficulty uint16
	blocks     []Block
}

// NewBlockchain constructs a blockchain seeded with the genesis block.
func NewBlockchain(gen genesis.Genesis) *Blockchain {
	genesisBlock := NewGenesisBlock(gen)

	return &Blockchain{
		genesis:    genesisBlock,
		difficulty: gen.Difficulty,
		blocks:     []Block{genesisBlock},
	}
}

// Genesis returns the genesis block for this chain.
func (bc *Blockchain) Genesis() Block {
	return bc.genesis
}

// Difficulty returns the difficulty blocks are validated against.
func (bc *Blockchain) Difficulty() uint16 {
	return bc.difficulty
}

// Len returns the number of blocks in the chain, including genesis.
func (bc *Blockchain) Len() int {
	return len(bc.blocks)
}

// LatestBlock returns the tip of the chain.
func (bc *Blockchain) LatestBlock() Block {
	return bc.blocks[len(bc.blocks)-1]
}

// Blocks returns a copy of the blocks in the chain.
func (bc *Blockchain) Blocks() []Block {
	blocks := make([]Block, len(bc.blocks))
	copy(blocks, bc.blocks)

	return blocks
}

// =============================================================================

// Append adds the block to the tip of the chain. The chain is left
// unmodified if the block is rejected.
func (bc *Blockchain) Append(block Block) error {
	if err := validateNextBlock(bc.LatestBlock(), block, bc.difficulty); err != nil {
		return err
	}

	bc.blocks = append(bc.blocks, block)

	return nil
}

// Replace swaps the entire chain for the candidate if the candidate is
// strictly longer and fully valid. Equal length chains never replace the
// local chain.
func (bc *Blockchain) Replace(candidate []Block) error {
	if len(candidate) <= len(bc.blocks) {
		return fmt.Errorf("%w: candidate[%d] local[%d]", ErrNotLonger, len(candidate), len(bc.blocks))
	}

	if err := bc.Validate(candidate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	blocks := make([]Block, len(candidate))
	copy(blocks, candidate)
	bc.blocks = blocks

	return nil
}

// Validate checks the entire sequence of blocks against the genesis block,
// block hashes, linkage and the work required. It returns the reason for the
// first failure found.
func (bc *Blockchain) Validate(blocks []Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty chain", ErrBadGenesis)
	}

	if blocks[0] != bc.genesis {
		return fmt.Errorf("%w: got %s, exp %s", ErrBadGenesis, blocks[0].Hash, bc.genesis.Hash)
	}

	for i := 1; i < len(blocks); i++ {
		if err := validateNextBlock(blocks[i-1], blocks[i], bc.difficulty); err != nil {
			return err
		}
	}

	return nil
}

// IsValid is the boolean form of Validate.
func (bc *Blockchain) IsValid(blocks []Block) bool {
	return bc.Validate(blocks) == nil
}

// =============================================================================

// validateNextBlock checks the block can follow the previous block.
func validateNextBlock(prevBlock Block, block Block, difficulty uint16) error {
	nextIndex := prevBlock.Index + 1
	if block.Index != nextIndex {
		return fmt.Errorf("%w: this block is not the next index, got %d, exp %d", ErrBadLinkage, block.Index, nextIndex)
	}

	if block.PrevHash != prevBlock.Hash {
		return fmt.Errorf("%w: prev hash doesn't match our known parent, got %s, exp %s", ErrBadLinkage, block.PrevHash.TerminalString(), prevBlock.Hash.TerminalString())
	}

	if !block.Verify() {
		return fmt.Errorf("%w: blk[%d] hash %s doesn't match its fields", ErrBadHash, block.Index, block.Hash.TerminalString())
	}

	if !IsHashSolved(difficulty, block.Hash) {
		return fmt.Errorf("%w: blk[%d] hash %s needs %d leading zeros", ErrInsufficientWork, block.Index, block.Hash.TerminalString(), difficulty)
	}

	return nil
}
