package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type signerService struct {
	rpc     Provider
	key     *ecdsa.PrivateKey
	address ecommon.Address

	mu      sync.Mutex
	chainID *big.Int
}

func newSignerService(rpc Provider, key *ecdsa.PrivateKey, chainID *big.Int) *signerService {
	return &signerService{
		rpc:     rpc,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}
}

func (s *signerService) Address() ecommon.Address { return s.address }

// SignAndBroadcast signs tx for the provider's chain and submits it once.
func (s *signerService) SignAndBroadcast(ctx context.Context, tx *etypes.Transaction) (*etypes.Transaction, error) {
	chainID, err := s.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := etypes.SignTx(tx, etypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	err = s.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return signed, nil
}

// getChainID reads the chain ID once and caches it.
func (s *signerService) getChainID(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chainID != nil {
		return s.chainID, nil
	}

	chainID, err := s.rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	s.chainID = chainID
	return chainID, nil
}
