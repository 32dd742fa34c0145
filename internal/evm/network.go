package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
)

const (
	DefaultConfirmTimeout = 5 * time.Minute
	DefaultPollInterval   = 3 * time.Second
)

type Config struct {
	// PrivateKey is the hex-encoded secp256k1 signing key, with or without 0x.
	PrivateKey string
	// SenderAddress is optional; when set it must match the key's address.
	SenderAddress string
	// ChainID skips the eth_chainId lookup when set.
	ChainID *big.Int
}

func (c Config) Validate() error {
	if c.PrivateKey == "" {
		return types.MissingConfig("evm", "PrivateKey")
	}
	if c.SenderAddress != "" && !ecommon.IsHexAddress(c.SenderAddress) {
		return &types.ConfigurationError{Component: "evm", Field: "SenderAddress", Reason: "is not a hex address"}
	}
	return nil
}

// Network is the EVM chain adapter.
type Network struct {
	rpc    Provider
	send   *sendService
	signer *signerService
	poller *status.Poller
	logger logrus.FieldLogger
}

func NewNetwork(cfg Config, rpc Provider, poller *status.Poller, logger logrus.FieldLogger) (*Network, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if rpc == nil {
		return nil, types.MissingConfig("evm", "Provider")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("network", types.NetworkEVM.String())

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, &types.ConfigurationError{Component: "evm", Field: "PrivateKey", Reason: "invalid secp256k1 key"}
	}

	signer := newSignerService(rpc, key, cfg.ChainID)
	if cfg.SenderAddress != "" {
		configured := ecommon.HexToAddress(cfg.SenderAddress)
		if configured != signer.Address() {
			return nil, &types.AddressKeyMismatchError{
				Configured: configured.Hex(),
				Derived:    signer.Address().Hex(),
			}
		}
	}

	if poller == nil {
		poller = status.NewPoller(types.NetworkEVM, status.Options{
			Timeout:  DefaultConfirmTimeout,
			Interval: DefaultPollInterval,
		}, logger, nil)
	}

	return &Network{
		rpc:    rpc,
		send:   newSendService(rpc),
		signer: signer,
		poller: poller,
		logger: logger,
	}, nil
}

func (n *Network) SenderAddress() string { return n.signer.Address().Hex() }

// Send transfers native value, or an ERC20 token when the currency carries a contract,
// and waits for a successful receipt.
func (n *Network) Send(
	ctx context.Context,
	to string,
	value decimal.Decimal,
	currency types.Currency,
) (*types.TxResult, error) {
	if currency.Network != types.NetworkEVM {
		return nil, &types.CurrencyError{Kind: types.ErrUnsupportedCurrency, Currency: currency}
	}
	if !ecommon.IsHexAddress(to) {
		return nil, fmt.Errorf("evm: invalid recipient address %s", to)
	}
	recipient := ecommon.HexToAddress(to)

	codec := amount.ForCurrency(currency)
	sub, err := codec.SendAmount(value)
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}

	var unsigned *unsignedTransfer
	if currency.IsToken() {
		if !ecommon.IsHexAddress(currency.TokenContract) {
			return nil, &types.ConfigurationError{Component: "evm", Field: "TokenContract", Reason: "is not a hex address"}
		}
		unsigned, err = n.send.BuildERC20Transfer(ctx, ecommon.HexToAddress(currency.TokenContract), n.signer.Address(), recipient, sub)
	} else {
		unsigned, err = n.send.BuildNativeTransfer(ctx, n.signer.Address(), recipient, sub)
	}
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}

	signed, err := n.signer.SignAndBroadcast(ctx, unsigned.Tx)
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}
	txHash := signed.Hash().Hex()

	n.logger.WithFields(logrus.Fields{
		"txHash":   txHash,
		"to":       recipient.Hex(),
		"amount":   codec.Format(sub),
		"currency": currency.String(),
		"gas":      signed.Gas(),
		"gasPrice": signed.GasPrice().String(),
	}).Info("tx broadcasted")

	_, err = n.poller.WaitForConfirmation(ctx, txHash, status.WithProbe(n.probe))
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}

	return &types.TxResult{
		Currency:   currency,
		TxHash:     txHash,
		SentAmount: codec.Format(sub),
		Fee:        amount.FromSubunits(unsigned.Fee, types.NetworkEVM.DefaultDecimals()),
	}, nil
}

// probe reports a mined successful receipt as confirmed; a failed receipt is terminal.
func (n *Network) probe(ctx context.Context, txID string, _ status.PollContext) (any, error) {
	receipt, err := n.rpc.TransactionReceipt(ctx, ecommon.HexToHash(txID))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return nil, err
	}
	if !receiptSucceeded(receipt) {
		return nil, status.Terminal(&types.TransactionRevertedError{
			TxID:    txID,
			Network: types.NetworkEVM,
			Reason:  fmt.Sprintf("receipt status %d in block %v", receipt.Status, receipt.BlockNumber),
		})
	}
	return true, nil
}

// GenerateAddress creates a fresh secp256k1 key and its checksummed address.
func (n *Network) GenerateAddress() (*types.GeneratedAddress, error) {
	return GenerateAddress()
}

func GenerateAddress() (*types.GeneratedAddress, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("evm: failed to generate key: %w", err)
	}
	return &types.GeneratedAddress{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}
