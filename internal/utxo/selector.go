package utxo

import (
	"fmt"
	"math"
	"sort"

	"github.com/vultisig/txengine/internal/types"
)

// Legacy P2PKH size estimates in bytes.
const (
	InputSize    = 148
	OutputSize   = 34
	OverheadSize = 10

	// DefaultDustThreshold is the Bitcoin relay dust limit in satoshis.
	DefaultDustThreshold = 546
)

// EstimateFee returns ceil(size * satsPerByte) for a transaction shape.
func EstimateFee(inputs, outputs int, satsPerByte float64) uint64 {
	size := inputs*InputSize + outputs*OutputSize + OverheadSize
	return uint64(math.Ceil(float64(size) * satsPerByte))
}

// Selector performs greedy largest-first coin selection.
type Selector struct {
	dust uint64
}

func NewSelector(dustThreshold uint64) *Selector {
	if dustThreshold == 0 {
		dustThreshold = DefaultDustThreshold
	}
	return &Selector{dust: dustThreshold}
}

func (s *Selector) DustThreshold() uint64 { return s.dust }

// Select picks inputs covering amount plus fee. A change output below the
// dust threshold is dropped and its value swept into the fee.
func (s *Selector) Select(utxos []Utxo, amount uint64, satsPerByte float64) (*Selection, error) {
	if amount == 0 {
		return nil, types.InvalidAmount("0", "amount must be positive")
	}
	if satsPerByte <= 0 || math.IsNaN(satsPerByte) || math.IsInf(satsPerByte, 0) {
		return nil, fmt.Errorf("invalid fee rate %v sat/byte", satsPerByte)
	}

	candidates := make([]Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.Value == 0 {
			continue
		}
		candidates = append(candidates, u)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	var (
		selected []Utxo
		total    uint64
	)
	for _, u := range candidates {
		selected = append(selected, u)
		total += u.Value

		feeNoChange := EstimateFee(len(selected), 1, satsPerByte)
		if total < amount+feeNoChange {
			continue
		}

		feeWithChange := EstimateFee(len(selected), 2, satsPerByte)
		if total >= amount+feeWithChange {
			change := total - amount - feeWithChange
			if change >= s.dust {
				return &Selection{
					Inputs:  selected,
					Total:   total,
					Fee:     feeWithChange,
					Change:  change,
					Outputs: 2,
				}, nil
			}
		}

		// no change output: whatever is left over goes to the miner
		return &Selection{
			Inputs:  selected,
			Total:   total,
			Fee:     total - amount,
			Outputs: 1,
		}, nil
	}

	inputs := len(candidates)
	if inputs == 0 {
		inputs = 1
	}
	return nil, &types.InsufficientBalanceError{
		Available: total,
		Required:  amount + EstimateFee(inputs, 1, satsPerByte),
	}
}
