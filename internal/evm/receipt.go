package evm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/types"
)

func receiptSucceeded(r *etypes.Receipt) bool {
	return r != nil && r.Status == etypes.ReceiptStatusSuccessful
}

// GetTransaction resolves receiver and amount: plain value transfer first, then
// ERC20 transfer call data, then the first Transfer event in the receipt logs.
// Amounts are scaled by the currency decimals, 18 without a currency.
func (n *Network) GetTransaction(ctx context.Context, txHash string, currency *types.Currency) (*types.TxReceipt, error) {
	hash := ecommon.HexToHash(txHash)

	tx, _, err := n.rpc.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("evm: failed to get tx %s: %w", txHash, err)
	}

	receipt, err := n.rpc.TransactionReceipt(ctx, hash)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("evm: failed to get receipt %s: %w", txHash, err)
	}

	decimals := types.NetworkEVM.DefaultDecimals()
	var token string
	if currency != nil {
		decimals = currency.Scale()
		token = currency.TokenContract
	}

	res := &types.TxReceipt{IsSuccess: receiptSucceeded(receipt)}

	receiver, value := decodeTransfer(tx, receipt, token)
	if value == nil {
		return res, nil
	}
	res.Receiver = receiver
	res.ReceivedAmount = amount.Codec{Decimals: decimals}.Decimal(value)
	return res, nil
}

func decodeTransfer(tx *etypes.Transaction, receipt *etypes.Receipt, token string) (string, *big.Int) {
	data := tx.Data()

	if len(data) == 0 {
		if tx.To() == nil {
			return "", nil
		}
		return tx.To().Hex(), tx.Value()
	}

	if len(data) >= 68 && bytes.Equal(data[:4], transferSelector) {
		to := ecommon.BytesToAddress(data[16:36])
		return to.Hex(), new(big.Int).SetBytes(data[36:68])
	}

	if receipt == nil {
		return "", nil
	}
	for _, log := range receipt.Logs {
		if len(log.Topics) < 3 || log.Topics[0] != transferTopic {
			continue
		}
		if token != "" && !strings.EqualFold(log.Address.Hex(), token) {
			continue
		}
		values, err := erc20ABI.Unpack("Transfer", log.Data)
		if err != nil || len(values) != 1 {
			continue
		}
		v, ok := values[0].(*big.Int)
		if !ok {
			continue
		}
		return ecommon.BytesToAddress(log.Topics[2].Bytes()).Hex(), v
	}
	return "", nil
}
