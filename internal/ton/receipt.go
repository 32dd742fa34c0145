package ton

import (
	"context"
	"math/big"

	"github.com/xssnick/tonutils-go/address"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/types"
)

// GetTransaction reads a transaction from the explorer. The hash may be a
// transaction hash or the external message hash returned by Send.
// Receiver and amount come from the inbound message; a wallet transaction
// triggered by an external message has no inbound value, so its first
// outgoing message is used instead.
func (n *Network) GetTransaction(ctx context.Context, txHash string, currency *types.Currency) (*types.TxReceipt, error) {
	tx, err := n.explorer.GetTransaction(ctx, txHash)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		tx, err = n.explorer.TransactionByMessage(ctx, txHash)
		if err != nil {
			return nil, err
		}
	}

	decimals := types.NetworkCell.DefaultDecimals()
	if currency != nil {
		decimals = currency.Scale()
	}

	res := &types.TxReceipt{IsSuccess: tx.Success && !tx.Aborted}

	msg := transferMessage(tx)
	if msg == nil {
		return res, nil
	}
	if msg.Destination != nil {
		res.Receiver = friendlyAddress(msg.Destination.Address)
	}
	res.ReceivedAmount = amount.Codec{Decimals: decimals}.Decimal(big.NewInt(msg.Value))
	return res, nil
}

func transferMessage(tx *Transaction) *Message {
	if tx.InMsg != nil && tx.InMsg.Value > 0 {
		return tx.InMsg
	}
	for i := range tx.OutMsgs {
		if tx.OutMsgs[i].Value > 0 {
			return &tx.OutMsgs[i]
		}
	}
	return tx.InMsg
}

// friendlyAddress renders a raw "0:hex" address in user-friendly form.
func friendlyAddress(raw string) string {
	addr, err := address.ParseRawAddr(raw)
	if err != nil {
		return raw
	}
	return addr.String()
}
