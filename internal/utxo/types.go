package utxo

import (
	"context"
	"fmt"
)

// Utxo is an unspent output owned by the sender, valid for one send call.
type Utxo struct {
	TxID        string
	OutputIndex uint32
	Value       uint64
}

func (u Utxo) String() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.OutputIndex)
}

// FeeProvider provides fee rate information for a UTXO chain.
type FeeProvider interface {
	SatsPerByte(ctx context.Context) (float64, error)
}

// Selection is the outcome of coin selection for one send.
type Selection struct {
	Inputs []Utxo
	Total  uint64
	Fee    uint64
	// Change is zero when no change output is emitted.
	Change uint64
	// Outputs is 1 (recipient only) or 2 (recipient and change).
	Outputs int
}

func (s Selection) HasChange() bool { return s.Change > 0 }
