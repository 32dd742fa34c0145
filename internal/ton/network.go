package ton

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
)

const (
	DefaultConfirmTimeout = 2 * time.Minute
	DefaultPollInterval   = 5 * time.Second
	DefaultDeployWait     = 10 * time.Second
)

type Config struct {
	// PrivateKey is a hex ed25519 seed or full private key.
	PrivateKey string
	// SenderAddress is optional; when set it must match the key's v4r2 wallet.
	SenderAddress string
	DeployWait    time.Duration
	// Comment is attached to every transfer when set.
	Comment string
}

func (c Config) Validate() error {
	if c.PrivateKey == "" {
		return types.MissingConfig("ton", "PrivateKey")
	}
	_, err := parseKey(c.PrivateKey)
	if err != nil {
		return &types.ConfigurationError{Component: "ton", Field: "PrivateKey", Reason: err.Error()}
	}
	if c.SenderAddress != "" {
		_, err = address.ParseAddr(c.SenderAddress)
		if err != nil {
			return &types.ConfigurationError{Component: "ton", Field: "SenderAddress", Reason: err.Error()}
		}
	}
	if c.DeployWait < 0 {
		return &types.ConfigurationError{Component: "ton", Field: "DeployWait", Reason: "must not be negative"}
	}
	return nil
}

// Key returns the signing key; call Validate first.
func (c Config) Key() (ed25519.PrivateKey, error) {
	return parseKey(c.PrivateKey)
}

// TxLookup is the explorer API used for receipts and fees.
type TxLookup interface {
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)
	TransactionByMessage(ctx context.Context, msgHash string) (*Transaction, error)
}

// Network is the cell-chain (TON) adapter.
type Network struct {
	wallet     WalletContract
	explorer   TxLookup
	deployWait time.Duration
	comment    string
	poller     *status.Poller
	logger     logrus.FieldLogger
}

func NewNetwork(cfg Config, contract WalletContract, explorer TxLookup, poller *status.Poller, logger logrus.FieldLogger) (*Network, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, types.MissingConfig("ton", "Wallet")
	}
	if explorer == nil {
		return nil, types.MissingConfig("ton", "Explorer")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("network", types.NetworkCell.String())

	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	derived, err := walletAddress(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	if !sameAddress(derived, contract.Address()) {
		return nil, &types.AddressKeyMismatchError{
			Configured: contract.Address().String(),
			Derived:    derived.String(),
		}
	}
	if cfg.SenderAddress != "" {
		configured := address.MustParseAddr(cfg.SenderAddress)
		if !sameAddress(derived, configured) {
			return nil, &types.AddressKeyMismatchError{
				Configured: cfg.SenderAddress,
				Derived:    derived.String(),
			}
		}
	}

	deployWait := cfg.DeployWait
	if deployWait == 0 {
		deployWait = DefaultDeployWait
	}
	if poller == nil {
		poller = status.NewPoller(types.NetworkCell, status.Options{
			Timeout:  DefaultConfirmTimeout,
			Interval: DefaultPollInterval,
		}, logger, nil)
	}

	return &Network{
		wallet:     contract,
		explorer:   explorer,
		deployWait: deployWait,
		comment:    cfg.Comment,
		poller:     poller,
		logger:     logger,
	}, nil
}

func (n *Network) SenderAddress() string { return n.wallet.Address().String() }

// seqnoStatus is the probe result: confirmed once the wallet moved past the transfer's seqno.
type seqnoStatus struct {
	Seqno    uint64
	Expected uint64
}

func (s seqnoStatus) IsConfirmed() bool { return s.Seqno >= s.Expected }

func (s seqnoStatus) String() string { return fmt.Sprintf("seqno %d/%d", s.Seqno, s.Expected) }

// Send transfers TON from the wallet, deploying it first when it has no state,
// and waits until the wallet seqno passes the transfer.
func (n *Network) Send(
	ctx context.Context,
	to string,
	value decimal.Decimal,
	currency types.Currency,
) (*types.TxResult, error) {
	if currency.Network != types.NetworkCell || currency.IsToken() {
		return nil, &types.CurrencyError{Kind: types.ErrUnsupportedCurrency, Currency: currency}
	}
	recipient, err := address.ParseAddr(to)
	if err != nil {
		return nil, fmt.Errorf("ton: invalid recipient address %s: %w", to, err)
	}

	codec := amount.ForCurrency(currency)
	sub, err := codec.SendAmount(value)
	if err != nil {
		return nil, fmt.Errorf("ton: %w", err)
	}

	seqno, err := n.currentSeqno(ctx)
	if err != nil {
		return nil, err
	}
	expected := seqno + 1

	msgHash, err := n.wallet.Transfer(ctx, recipient, tlb.FromNanoTON(sub), n.comment)
	if err != nil {
		return nil, err
	}
	txHash := hex.EncodeToString(msgHash)

	n.logger.WithFields(logrus.Fields{
		"txHash":   txHash,
		"to":       recipient.String(),
		"amount":   codec.Format(sub),
		"currency": currency.String(),
		"seqno":    seqno,
	}).Info("tx broadcasted")

	_, err = n.poller.WaitForConfirmation(ctx, txHash, status.WithProbe(func(ctx context.Context, _ string, _ status.PollContext) (any, error) {
		current, _, err := n.wallet.Seqno(ctx)
		if err != nil {
			return nil, err
		}
		return seqnoStatus{Seqno: current, Expected: expected}, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("ton: %w", err)
	}

	return &types.TxResult{
		Currency:   currency,
		TxHash:     txHash,
		SentAmount: codec.Format(sub),
		Fee:        n.fee(ctx, txHash),
	}, nil
}

// currentSeqno deploys an undeployed wallet and re-reads its seqno after DeployWait.
func (n *Network) currentSeqno(ctx context.Context) (uint64, error) {
	seqno, deployed, err := n.wallet.Seqno(ctx)
	if err != nil {
		return 0, err
	}
	if deployed {
		return seqno, nil
	}

	n.logger.WithField("address", n.SenderAddress()).Warn("wallet is not deployed, deploying")
	err = n.wallet.Deploy(ctx)
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(n.deployWait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return 0, ctx.Err()
	case <-timer.C:
	}

	seqno, deployed, err = n.wallet.Seqno(ctx)
	if err != nil {
		return 0, err
	}
	if !deployed {
		return 0, fmt.Errorf("ton: wallet %s still not deployed after %s", n.SenderAddress(), n.deployWait)
	}
	return seqno, nil
}

// fee is best effort: the explorer may not have indexed the transaction yet.
func (n *Network) fee(ctx context.Context, msgHash string) string {
	tx, err := n.explorer.TransactionByMessage(ctx, msgHash)
	if err != nil {
		n.logger.WithField("txHash", msgHash).WithError(err).Debug("fee lookup failed")
		return "0"
	}
	return amount.FromSubunits(big.NewInt(tx.TotalFees), types.NetworkCell.DefaultDecimals())
}

func (n *Network) GenerateAddress() (*types.GeneratedAddress, error) {
	return GenerateAddress()
}

// GenerateAddress creates an ed25519 key and its v4r2 wallet address.
// The private key is the hex seed.
func GenerateAddress() (*types.GeneratedAddress, error) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to generate key: %w", err)
	}
	addr, err := walletAddress(pub)
	if err != nil {
		return nil, err
	}
	return &types.GeneratedAddress{
		Address:    addr.String(),
		PrivateKey: hex.EncodeToString(key.Seed()),
	}, nil
}

func sameAddress(a, b *address.Address) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Workchain() == b.Workchain() && string(a.Data()) == string(b.Data())
}
