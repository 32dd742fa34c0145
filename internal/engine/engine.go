package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/types"
)

// Adapter is implemented by every chain adapter (btc, evm, tron, ton).
type Adapter interface {
	Send(ctx context.Context, to string, amount decimal.Decimal, currency types.Currency) (*types.TxResult, error)
	GetTransaction(ctx context.Context, txHash string, currency *types.Currency) (*types.TxReceipt, error)
	GenerateAddress() (*types.GeneratedAddress, error)
}

// SendRecorder receives send outcomes; metrics.EngineMetrics implements it.
type SendRecorder interface {
	RecordSend(network string, success bool, duration time.Duration)
}

// Engine routes calls to the adapter registered for the currency's network.
type Engine struct {
	adapters map[types.NetworkID]Adapter
	recorder SendRecorder
	logger   logrus.FieldLogger
}

func New(adapters map[types.NetworkID]Adapter, recorder SendRecorder, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := make(map[types.NetworkID]Adapter, len(adapters))
	for network, adapter := range adapters {
		if adapter != nil {
			registry[network] = adapter
		}
	}
	return &Engine{
		adapters: registry,
		recorder: recorder,
		logger:   logger,
	}
}

// Get returns the adapter registered for network.
func (e *Engine) Get(network types.NetworkID) (Adapter, error) {
	adapter, ok := e.adapters[network]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for network %s: %w", network, types.ErrUnsupportedCurrency)
	}
	return adapter, nil
}

// Networks lists the registered networks in registry order.
func (e *Engine) Networks() []types.NetworkID {
	var out []types.NetworkID
	for _, n := range types.Networks() {
		if _, ok := e.adapters[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (e *Engine) route(currency types.Currency) (Adapter, error) {
	if currency.Kind == types.KindFiat {
		return nil, &types.CurrencyError{Kind: types.ErrUnsupportedCurrency, Currency: currency}
	}
	if currency.Network == "" {
		return nil, &types.CurrencyError{Kind: types.ErrMissingNetwork, Currency: currency}
	}
	return e.Get(currency.Network)
}

func (e *Engine) Send(ctx context.Context, to string, amount decimal.Decimal, currency types.Currency) (*types.TxResult, error) {
	adapter, err := e.route(currency)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := adapter.Send(ctx, to, amount, currency)
	duration := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordSend(currency.Network.String(), err == nil, duration)
	}
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"network":  currency.Network.String(),
			"currency": currency.String(),
			"to":       to,
			"amount":   amount.String(),
		}).WithError(err).Warn("send failed")
		return nil, err
	}
	return res, nil
}

// GetTransaction passes the currency to the adapter only for token transfers;
// native lookups use the network's default decimals.
func (e *Engine) GetTransaction(ctx context.Context, txHash string, currency types.Currency) (*types.TxReceipt, error) {
	adapter, err := e.route(currency)
	if err != nil {
		return nil, err
	}

	var token *types.Currency
	if currency.IsToken() {
		token = &currency
	}
	return adapter.GetTransaction(ctx, txHash, token)
}

func (e *Engine) GenerateAddress(network types.NetworkID) (*types.GeneratedAddress, error) {
	adapter, err := e.Get(network)
	if err != nil {
		return nil, err
	}
	return adapter.GenerateAddress()
}
