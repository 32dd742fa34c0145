package tron

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/sirupsen/logrus"
)

// Broadcaster submits signed transactions
type Broadcaster interface {
	BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResponse, error)
}

// SignerService handles TRON transaction signing and broadcasting
type SignerService struct {
	key         *ecdsa.PrivateKey
	address     address.Address
	broadcaster Broadcaster
	logger      logrus.FieldLogger
}

// NewSignerService creates a new SignerService
func NewSignerService(key *ecdsa.PrivateKey, broadcaster Broadcaster, logger logrus.FieldLogger) *SignerService {
	return &SignerService{
		key:         key,
		address:     address.PubkeyToAddress(key.PublicKey),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Address is the base58 address of the signing key.
func (s *SignerService) Address() string { return s.address.String() }

// SignAndBroadcast signs a TRON transaction and broadcasts it, returning the txID.
func (s *SignerService) SignAndBroadcast(ctx context.Context, tx *Transaction) (string, error) {
	rawData, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return "", fmt.Errorf("tron: failed to decode raw_data_hex: %w", err)
	}

	// TRON txID is SHA256 of raw_data
	hash := sha256.Sum256(rawData)
	txID := hex.EncodeToString(hash[:])
	if tx.TxID != "" && tx.TxID != txID {
		return "", fmt.Errorf("tron: node txID %s does not match raw data hash %s", tx.TxID, txID)
	}

	sig, err := crypto.Sign(hash[:], s.key)
	if err != nil {
		return "", fmt.Errorf("tron: failed to sign transaction: %w", err)
	}

	signed := *tx
	signed.TxID = txID
	signed.Signature = []string{hex.EncodeToString(sig)}
	signed.Visible = true

	s.logger.WithFields(logrus.Fields{
		"txHash":    txID,
		"rawLength": len(rawData),
	}).Debug("tron: broadcasting signed transaction")

	_, err = s.broadcaster.BroadcastTransaction(ctx, &signed)
	if err != nil {
		return "", err
	}
	return txID, nil
}
