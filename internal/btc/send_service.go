package btc

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/vultisig/txengine/internal/utxo"
	"github.com/vultisig/txengine/internal/utxo/address"
)

type SendService struct{}

func NewSendService() *SendService {
	return &SendService{}
}

// BuildTransfer builds the unsigned transaction for a selection: the recipient
// output first, then the change output back to the sender when the selection has one.
func (s *SendService) BuildTransfer(
	sel *utxo.Selection,
	to address.UTXOAddress,
	change address.UTXOAddress,
	amount uint64,
) (*wire.MsgTx, error) {
	if len(sel.Inputs) == 0 {
		return nil, fmt.Errorf("selection has no inputs")
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for i, in := range sel.Inputs {
		hash, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse input[%d] txid %s: %w", i, in.TxID, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, in.OutputIndex), nil, nil))
	}

	toScript, err := to.PayToAddrScript()
	if err != nil {
		return nil, fmt.Errorf("failed to create recipient script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(int64(amount), toScript))

	if sel.HasChange() {
		changeScript, er := change.PayToAddrScript()
		if er != nil {
			return nil, fmt.Errorf("failed to create change script: %w", er)
		}
		tx.AddTxOut(wire.NewTxOut(int64(sel.Change), changeScript))
	}

	return tx, nil
}
