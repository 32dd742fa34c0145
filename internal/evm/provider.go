package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Provider is the JSON-RPC surface the adapter uses; *ethclient.Client implements it.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account ecommon.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *etypes.Transaction) error
	TransactionByHash(ctx context.Context, hash ecommon.Hash) (tx *etypes.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, txHash ecommon.Hash) (*etypes.Receipt, error)
}

var _ Provider = (*ethclient.Client)(nil)

func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: failed to connect to RPC: %w", err)
	}
	return rpc, nil
}
