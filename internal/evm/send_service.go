package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

type sendService struct {
	rpc Provider
}

func newSendService(rpc Provider) *sendService {
	return &sendService{
		rpc: rpc,
	}
}

// unsignedTransfer is a priced, unsigned transaction ready for the signer.
type unsignedTransfer struct {
	Tx  *etypes.Transaction
	Fee *big.Int
}

func (s *sendService) BuildNativeTransfer(
	ctx context.Context,
	from ecommon.Address,
	to ecommon.Address,
	amount *big.Int,
) (*unsignedTransfer, error) {
	tx, err := s.build(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make native transfer tx: %w", err)
	}
	return tx, nil
}

func (s *sendService) BuildERC20Transfer(
	ctx context.Context,
	token ecommon.Address,
	from ecommon.Address,
	to ecommon.Address,
	amount *big.Int,
) (*unsignedTransfer, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer call: %w", err)
	}

	tx, err := s.build(ctx, ethereum.CallMsg{
		From:  from,
		To:    &token,
		Value: big.NewInt(0),
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make ERC20 transfer tx: %w", err)
	}
	return tx, nil
}

// build prices msg at the current gas price: fee = gasPrice * estimated gas.
func (s *sendService) build(ctx context.Context, msg ethereum.CallMsg) (*unsignedTransfer, error) {
	gasPrice, err := s.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	msg.GasPrice = gasPrice

	gas, err := s.rpc.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	nonce, err := s.rpc.PendingNonceAt(ctx, msg.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := etypes.NewTx(&etypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       msg.To,
		Value:    msg.Value,
		Data:     msg.Data,
	})

	return &unsignedTransfer{
		Tx:  tx,
		Fee: new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas)),
	}, nil
}
