package btc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/esplora"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
	"github.com/vultisig/txengine/internal/utxo"
	"github.com/vultisig/txengine/internal/utxo/address"
)

const (
	DefaultConfirmTimeout = 30 * time.Minute
	DefaultPollInterval   = 15 * time.Second
)

// Indexer is the subset of the UTXO indexer the adapter needs; *esplora.Client implements it.
type Indexer interface {
	ListUnspent(ctx context.Context, address string) ([]utxo.Utxo, error)
	GetTransaction(ctx context.Context, txHash string) (*wire.MsgTx, error)
	GetTxStatus(ctx context.Context, txHash string) (esplora.TxStatus, error)
	GetTxInfo(ctx context.Context, txHash string) (*esplora.TxInfo, error)
	SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}

type Config struct {
	Params        *chaincfg.Params
	SenderAddress string
	PrivateKeyWIF string
	// DustThreshold defaults to utxo.DefaultDustThreshold.
	DustThreshold uint64
}

func (c Config) Validate() error {
	if c.Params == nil {
		return types.MissingConfig("btc", "Params")
	}
	if c.SenderAddress == "" {
		return types.MissingConfig("btc", "SenderAddress")
	}
	if c.PrivateKeyWIF == "" {
		return types.MissingConfig("btc", "PrivateKeyWIF")
	}
	return nil
}

// Network is the UTXO chain adapter.
type Network struct {
	params   *chaincfg.Params
	sender   address.UTXOAddress
	indexer  Indexer
	fee      utxo.FeeProvider
	selector *utxo.Selector
	send     *SendService
	signer   *SignerService
	poller   *status.Poller
	logger   logrus.FieldLogger
}

// NewNetwork validates cfg and checks that the configured sender address is the one
// derived from the signing key. A nil poller gets the adapter defaults.
func NewNetwork(
	cfg Config,
	indexer Indexer,
	fee utxo.FeeProvider,
	poller *status.Poller,
	logger logrus.FieldLogger,
) (*Network, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if indexer == nil {
		return nil, types.MissingConfig("btc", "Indexer")
	}
	if fee == nil {
		return nil, types.MissingConfig("btc", "FeeProvider")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("network", types.NetworkUTXO.String())

	sender, err := address.Decode(cfg.SenderAddress, cfg.Params)
	if err != nil {
		return nil, &types.ConfigurationError{Component: "btc", Field: "SenderAddress", Reason: err.Error()}
	}

	wif, err := btcutil.DecodeWIF(cfg.PrivateKeyWIF)
	if err != nil {
		return nil, &types.ConfigurationError{Component: "btc", Field: "PrivateKeyWIF", Reason: "invalid WIF"}
	}
	if !wif.IsForNet(cfg.Params) {
		return nil, &types.ConfigurationError{Component: "btc", Field: "PrivateKeyWIF", Reason: "key is for another network"}
	}

	derived, err := address.NewBTCAddressFromPubKey(wif.SerializePubKey(), sender.IsSegwit(), cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to derive address from key: %w", err)
	}
	if derived.String() != sender.String() {
		return nil, &types.AddressKeyMismatchError{Configured: sender.String(), Derived: derived.String()}
	}

	if poller == nil {
		poller = status.NewPoller(types.NetworkUTXO, status.Options{
			Timeout:  DefaultConfirmTimeout,
			Interval: DefaultPollInterval,
		}, logger, nil)
	}

	return &Network{
		params:   cfg.Params,
		sender:   sender,
		indexer:  indexer,
		fee:      fee,
		selector: utxo.NewSelector(cfg.DustThreshold),
		send:     NewSendService(),
		signer:   NewSignerService(wif, sender, indexer),
		poller:   poller,
		logger:   logger,
	}, nil
}

func (n *Network) SenderAddress() string { return n.sender.String() }

// Send transfers value to the recipient, broadcasts once and waits for the first confirmation.
func (n *Network) Send(
	ctx context.Context,
	to string,
	value decimal.Decimal,
	currency types.Currency,
) (*types.TxResult, error) {
	if currency.Network != types.NetworkUTXO || currency.IsToken() {
		return nil, &types.CurrencyError{Kind: types.ErrUnsupportedCurrency, Currency: currency}
	}

	codec := amount.ForCurrency(currency)
	sats, err := codec.SendAmount(value)
	if err != nil {
		return nil, fmt.Errorf("btc: %w", err)
	}

	recipient, err := address.Decode(to, n.params)
	if err != nil {
		return nil, fmt.Errorf("btc: invalid recipient address %s: %w", to, err)
	}

	utxos, err := n.indexer.ListUnspent(ctx, n.sender.String())
	if err != nil {
		return nil, fmt.Errorf("btc: failed to get utxos: %w", err)
	}

	rate, err := n.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	sel, err := n.selector.Select(utxos, sats.Uint64(), rate)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to select utxos: %w", err)
	}

	log := n.logger.WithFields(logrus.Fields{
		"to":          recipient.String(),
		"amount":      codec.Format(sats),
		"inputs":      len(sel.Inputs),
		"fee":         sel.Fee,
		"change":      sel.Change,
		"satsPerByte": rate,
	})
	log.Debug("utxos selected")

	unsigned, err := n.send.BuildTransfer(sel, recipient, n.sender, sats.Uint64())
	if err != nil {
		return nil, fmt.Errorf("btc: failed to build transfer: %w", err)
	}

	signed, err := n.signer.Sign(ctx, unsigned, sel.Inputs)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to sign tx: %w", err)
	}

	hash, err := n.indexer.SendRawTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to broadcast tx: %w", err)
	}
	txHash := hash.String()
	log.WithField("txHash", txHash).Info("tx broadcasted")

	_, err = n.poller.WaitForConfirmation(ctx, txHash, status.WithProbe(n.probe))
	if err != nil {
		return nil, fmt.Errorf("btc: %w", err)
	}

	return &types.TxResult{
		Currency:   currency,
		TxHash:     txHash,
		SentAmount: codec.Format(sats),
		Fee:        codec.Format(new(big.Int).SetUint64(sel.Fee)),
	}, nil
}

func (n *Network) probe(ctx context.Context, txID string, _ status.PollContext) (any, error) {
	st, err := n.indexer.GetTxStatus(ctx, txID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetTransaction reads a transaction from the indexer and resolves its receiver.
// The currency is unused: UTXO amounts always have 8 decimals.
func (n *Network) GetTransaction(ctx context.Context, txHash string, _ *types.Currency) (*types.TxReceipt, error) {
	tx, err := n.indexer.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to get tx: %w", err)
	}

	info, err := n.indexer.GetTxInfo(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to get tx status: %w", err)
	}

	receipt := &types.TxReceipt{IsSuccess: info.Status.Confirmed}

	out, receiver := resolveReceiver(tx, senderAddresses(tx, info.SenderAddresses(), n.params), n.params)
	if out == nil {
		return receipt, nil
	}
	receipt.Receiver = receiver
	receipt.ReceivedAmount = amount.ForNetwork(types.NetworkUTXO).Decimal(big.NewInt(out.Value))
	return receipt, nil
}

// GenerateAddress creates a fresh key and its P2WPKH address. No network I/O.
func (n *Network) GenerateAddress() (*types.GeneratedAddress, error) {
	return GenerateAddress(n.params)
}

func GenerateAddress(params *chaincfg.Params) (*types.GeneratedAddress, error) {
	if params == nil {
		return nil, errors.New("btc: chain params are required")
	}

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("btc: failed to generate key: %w", err)
	}

	wif, err := btcutil.NewWIF(key, params, true)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to encode wif: %w", err)
	}

	addr, err := address.NewBTCAddressFromPubKey(wif.SerializePubKey(), true, params)
	if err != nil {
		return nil, fmt.Errorf("btc: failed to derive address: %w", err)
	}

	return &types.GeneratedAddress{
		Address:    addr.String(),
		PrivateKey: wif.String(),
	}, nil
}
