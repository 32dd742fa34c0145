package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxBuilder is the part of the node API that builds unsigned transactions
type TxBuilder interface {
	CreateTransaction(ctx context.Context, req *TransferRequest) (*Transaction, error)
	TriggerSmartContract(ctx context.Context, req *TRC20TransferRequest) (*Transaction, error)
}

// SendService handles building TRON send transactions
type SendService struct {
	client TxBuilder
}

// NewSendService creates a new SendService
func NewSendService(client TxBuilder) *SendService {
	return &SendService{
		client: client,
	}
}

// BuildTransfer builds an unsigned TRX transfer transaction
func (s *SendService) BuildTransfer(
	ctx context.Context,
	from string,
	to string,
	amountSun int64,
) (*Transaction, error) {
	tx, err := s.client.CreateTransaction(ctx, &TransferRequest{
		OwnerAddress: from,
		ToAddress:    to,
		Amount:       amountSun,
		Visible:      true,
	})
	if err != nil {
		return nil, err
	}

	err = checkUnsigned(tx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildTRC20Transfer builds an unsigned TRC-20 token transfer transaction
func (s *SendService) BuildTRC20Transfer(
	ctx context.Context,
	from string,
	to string,
	contractAddress string,
	amount *big.Int,
	feeLimit int64,
) (*Transaction, error) {
	parameter, err := encodeTRC20TransferParameter(to, amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.client.TriggerSmartContract(ctx, &TRC20TransferRequest{
		OwnerAddress:     from,
		ContractAddress:  contractAddress,
		FunctionSelector: "transfer(address,uint256)",
		Parameter:        parameter,
		FeeLimit:         feeLimit,
		Visible:          true,
	})
	if err != nil {
		return nil, err
	}

	err = checkUnsigned(tx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func checkUnsigned(tx *Transaction) error {
	if tx.RawDataHex == "" {
		return fmt.Errorf("tron: no raw_data_hex in transaction response")
	}
	if len(tx.RawData) == 0 {
		return fmt.Errorf("tron: no raw_data in transaction response")
	}
	_, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return fmt.Errorf("tron: failed to decode raw_data_hex: %w", err)
	}
	return nil
}

// encodeTRC20TransferParameter ABI-encodes transfer(address,uint256) arguments:
// the 20-byte account (0x41 prefix dropped) and the amount, each left-padded to 32 bytes.
func encodeTRC20TransferParameter(to string, amount *big.Int) (string, error) {
	addr, err := parseAddress(to)
	if err != nil {
		return "", err
	}
	if amount.Sign() < 0 {
		return "", fmt.Errorf("tron: negative token amount %s", amount)
	}

	word := common.LeftPadBytes(addr[1:], 32)
	amountWord := common.LeftPadBytes(amount.Bytes(), 32)
	return hex.EncodeToString(append(word, amountWord...)), nil
}
