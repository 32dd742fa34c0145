package tron

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
)

const (
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultPollInterval   = 3 * time.Second

	// DefaultTRC20FeeLimit caps the energy burned by a token transfer, in sun.
	DefaultTRC20FeeLimit int64 = 30_000_000
)

// Node is the full node API used by the adapter.
type Node interface {
	TxBuilder
	Broadcaster
	GetTransactionByID(ctx context.Context, txID string) (*Transaction, error)
	GetTransactionInfoByID(ctx context.Context, txID string) (*TransactionInfo, error)
}

type Config struct {
	// PrivateKey is the hex-encoded secp256k1 signing key.
	PrivateKey string
	// SenderAddress is optional; when set it must match the key's base58 address.
	SenderAddress string
	FeeLimit      int64
}

func (c Config) Validate() error {
	if c.PrivateKey == "" {
		return types.MissingConfig("tron", "PrivateKey")
	}
	if c.SenderAddress != "" {
		_, err := parseAddress(c.SenderAddress)
		if err != nil {
			return &types.ConfigurationError{Component: "tron", Field: "SenderAddress", Reason: err.Error()}
		}
	}
	if c.FeeLimit < 0 {
		return &types.ConfigurationError{Component: "tron", Field: "FeeLimit", Reason: "must not be negative"}
	}
	return nil
}

// Network is the resource-model (TRON) chain adapter.
type Network struct {
	node     Node
	send     *SendService
	signer   *SignerService
	feeLimit int64
	poller   *status.Poller
	logger   logrus.FieldLogger
}

func NewNetwork(cfg Config, node Node, poller *status.Poller, logger logrus.FieldLogger) (*Network, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, types.MissingConfig("tron", "Node")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("network", types.NetworkResource.String())

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, &types.ConfigurationError{Component: "tron", Field: "PrivateKey", Reason: "invalid secp256k1 key"}
	}

	signer := NewSignerService(key, node, logger)
	if cfg.SenderAddress != "" && cfg.SenderAddress != signer.Address() {
		return nil, &types.AddressKeyMismatchError{
			Configured: cfg.SenderAddress,
			Derived:    signer.Address(),
		}
	}

	feeLimit := cfg.FeeLimit
	if feeLimit == 0 {
		feeLimit = DefaultTRC20FeeLimit
	}

	if poller == nil {
		poller = status.NewPoller(types.NetworkResource, status.Options{
			Timeout:  DefaultConfirmTimeout,
			Interval: DefaultPollInterval,
		}, logger, nil)
	}

	return &Network{
		node:     node,
		send:     NewSendService(node),
		signer:   signer,
		feeLimit: feeLimit,
		poller:   poller,
		logger:   logger,
	}, nil
}

func (n *Network) SenderAddress() string { return n.signer.Address() }

// Send transfers TRX, or a TRC-20 token when the currency carries a contract,
// and waits until the transaction is in a block with a successful result.
func (n *Network) Send(
	ctx context.Context,
	to string,
	value decimal.Decimal,
	currency types.Currency,
) (*types.TxResult, error) {
	if currency.Network != types.NetworkResource {
		return nil, &types.CurrencyError{Kind: types.ErrUnsupportedCurrency, Currency: currency}
	}
	_, err := parseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("tron: %w", err)
	}

	codec := amount.ForCurrency(currency)
	sub, err := codec.SendAmount(value)
	if err != nil {
		return nil, fmt.Errorf("tron: %w", err)
	}

	var tx *Transaction
	if currency.IsToken() {
		_, err = parseAddress(currency.TokenContract)
		if err != nil {
			return nil, &types.ConfigurationError{Component: "tron", Field: "TokenContract", Reason: err.Error()}
		}
		tx, err = n.send.BuildTRC20Transfer(ctx, n.SenderAddress(), to, currency.TokenContract, sub, n.feeLimit)
	} else {
		tx, err = n.send.BuildTransfer(ctx, n.SenderAddress(), to, sub.Int64())
	}
	if err != nil {
		return nil, err
	}

	txID, err := n.signer.SignAndBroadcast(ctx, tx)
	if err != nil {
		return nil, err
	}

	n.logger.WithFields(logrus.Fields{
		"txHash":   txID,
		"to":       to,
		"amount":   codec.Format(sub),
		"currency": currency.String(),
	}).Info("tx broadcasted")

	conf, err := n.poller.WaitForConfirmation(ctx, txID, status.WithProbe(n.probe))
	if err != nil {
		return nil, fmt.Errorf("tron: %w", err)
	}

	var feeSun int64
	if info, ok := conf.Status.(*TransactionInfo); ok {
		feeSun = info.FeeSun()
	}

	return &types.TxResult{
		Currency:   currency,
		TxHash:     txID,
		SentAmount: codec.Format(sub),
		Fee:        amount.FromSubunits(big.NewInt(feeSun), types.NetworkResource.DefaultDecimals()),
	}, nil
}

// probe returns the info record once mined; a failed execution is terminal.
func (n *Network) probe(ctx context.Context, txID string, _ status.PollContext) (any, error) {
	info, err := n.node.GetTransactionInfoByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if info.Failed() {
		reason := decodeMessage(info.ResMessage)
		if reason == "" {
			reason = "receipt result " + info.Receipt.Result
		}
		return nil, status.Terminal(&types.TransactionRevertedError{
			TxID:    txID,
			Network: types.NetworkResource,
			Reason:  reason,
		})
	}
	return info, nil
}

func (n *Network) GenerateAddress() (*types.GeneratedAddress, error) {
	return GenerateAddress()
}

// GenerateAddress creates a fresh secp256k1 key and its base58 address.
func GenerateAddress() (*types.GeneratedAddress, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("tron: failed to generate key: %w", err)
	}
	return &types.GeneratedAddress{
		Address:    addressOf(key),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}

func addressOf(key *ecdsa.PrivateKey) string {
	return address.PubkeyToAddress(key.PublicKey).String()
}
