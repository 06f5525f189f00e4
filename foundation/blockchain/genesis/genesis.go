// Package genesis maintains access to the genesis settings every node in the
// network must agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Genesis represents the genesis settings.
type Genesis struct {
	Date       time.Time `json:"date"`       // Timestamp recorded in the genesis block.
	Data       string    `json:"data"`       // Payload of the genesis block.
	Difficulty uint16    `json:"difficulty"` // Leading zero hex digits required in a block hash.
}

// Default returns the genesis settings compiled into the binary. Every node
// built from this value starts from a byte-identical genesis block.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Data:       "powmesh genesis",
		Difficulty: 3,
	}
}

// maxDifficulty is the number of hex digits in a sha256 hash.
const maxDifficulty = 64

// Validate checks the genesis settings are usable.
func (g Genesis) Validate() error {
	if g.Date.IsZero() {
		return errors.New("genesis date is required")
	}

	if g.Difficulty > maxDifficulty {
		return fmt.Errorf("difficulty %d exceeds max of %d", g.Difficulty, maxDifficulty)
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file at the specified path.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Resolve returns the genesis settings from the file at path, or the compiled
// default when path is empty. A non-zero difficulty replaces the difficulty
// carried by those settings.
func Resolve(path string, difficulty uint16) (Genesis, error) {
	gen := Default()
	if path != "" {
		var err error
		if gen, err = Load(path); err != nil {
			return Genesis{}, err
		}
	}

	if difficulty != 0 {
		gen.Difficulty = difficulty
	}

	if err := gen.Validate(); err != nil {
		return Genesis{}, err
	}

	return gen, nil
}
