package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/fbsobreira/gotron-sdk/pkg/address"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/types"
)

const (
	trc20TransferSelector = "a9059cbb"
	// keccak256("Transfer(address,address,uint256)")
	trc20TransferTopic = "ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

// GetTransaction resolves receiver and amount of a TRX transfer or a TRC-20
// transfer call. Amounts use the currency decimals, 6 without a currency.
func (n *Network) GetTransaction(ctx context.Context, txHash string, currency *types.Currency) (*types.TxReceipt, error) {
	tx, err := n.node.GetTransactionByID(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, fmt.Errorf("tron: transaction %s not found", txHash)
	}

	info, err := n.node.GetTransactionInfoByID(ctx, txHash)
	if err != nil {
		return nil, err
	}

	decimals := types.NetworkResource.DefaultDecimals()
	var token string
	if currency != nil {
		decimals = currency.Scale()
		token = currency.TokenContract
	}

	res := &types.TxReceipt{IsSuccess: txSucceeded(tx, info)}

	raw, err := tx.Raw()
	if err != nil {
		return nil, err
	}
	if len(raw.Contract) == 0 {
		return res, nil
	}

	receiver, value := decodeContract(raw.Contract[0], info, token)
	if value == nil {
		return res, nil
	}
	res.Receiver = receiver
	res.ReceivedAmount = amount.Codec{Decimals: decimals}.Decimal(value)
	return res, nil
}

func txSucceeded(tx *Transaction, info *TransactionInfo) bool {
	if len(tx.Ret) == 0 || tx.Ret[0].ContractRet != ResultSuccess {
		return false
	}
	return info.IsConfirmed() && !info.Failed()
}

func decodeContract(c Contract, info *TransactionInfo, token string) (string, *big.Int) {
	v := c.Parameter.Value
	switch c.Type {
	case ContractTypeTransfer:
		return normalizeAddress(v.ToAddress), big.NewInt(v.Amount)
	case ContractTypeTriggerSmart:
		data := strings.TrimPrefix(strings.ToLower(v.Data), "0x")
		if len(data) >= 136 && data[:8] == trc20TransferSelector {
			to, err := hex.DecodeString(data[32:72])
			if err == nil {
				amt, ok := new(big.Int).SetString(data[72:136], 16)
				if ok {
					return fromEVMBytes(to), amt
				}
			}
		}
		return decodeTransferLog(info, token)
	}
	return "", nil
}

// decodeTransferLog reads the first Transfer event, optionally from the given contract only.
func decodeTransferLog(info *TransactionInfo, token string) (string, *big.Int) {
	if info == nil {
		return "", nil
	}
	var tokenHex string
	if token != "" {
		addr, err := address.Base58ToAddress(token)
		if err == nil && len(addr) == address.AddressLength {
			tokenHex = hex.EncodeToString(addr[1:])
		}
	}
	for _, log := range info.Log {
		if len(log.Topics) < 3 || !strings.EqualFold(log.Topics[0], trc20TransferTopic) {
			continue
		}
		logAddr := log.Address
		if len(logAddr) == 2*address.AddressLength {
			logAddr = logAddr[2:]
		}
		if tokenHex != "" && !strings.EqualFold(logAddr, tokenHex) {
			continue
		}
		to, err := hex.DecodeString(log.Topics[2])
		if err != nil {
			continue
		}
		amt, ok := new(big.Int).SetString(log.Data, 16)
		if !ok {
			continue
		}
		return fromEVMBytes(to), amt
	}
	return "", nil
}
