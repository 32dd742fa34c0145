package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/btc"
	"github.com/vultisig/txengine/internal/engine"
	"github.com/vultisig/txengine/internal/esplora"
	"github.com/vultisig/txengine/internal/evm"
	"github.com/vultisig/txengine/internal/libhttp"
	"github.com/vultisig/txengine/internal/mempool"
	"github.com/vultisig/txengine/internal/metrics"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/ton"
	"github.com/vultisig/txengine/internal/tron"
	"github.com/vultisig/txengine/internal/types"
)

type app struct {
	engine *engine.Engine
	params *chaincfg.Params
	logger *logrus.Logger
}

// newApp registers an adapter for every network whose signing key is configured.
func newApp(ctx context.Context, cfg config, logger *logrus.Logger) (*app, error) {
	params, err := cfg.Bitcoin.params()
	if err != nil {
		return nil, err
	}

	client := libhttp.New(
		libhttp.WithRetries(cfg.Http.Retries),
		libhttp.WithRetryDelay(cfg.Http.RetryDelay),
		libhttp.WithHTTPClient(&http.Client{Timeout: cfg.Http.Timeout}),
		libhttp.WithLogger(logger),
		libhttp.WithRecorder(metrics.NewIndexerMetrics()),
	)
	pollerMetrics := metrics.NewPollerMetrics()
	adapters := make(map[types.NetworkID]engine.Adapter)

	if cfg.Bitcoin.PrivateKeyWIF != "" {
		poller := status.NewPoller(types.NetworkUTXO,
			cfg.Poll.options(btc.DefaultConfirmTimeout, btc.DefaultPollInterval), logger, pollerMetrics)
		network, er := btc.NewNetwork(
			btc.Config{
				Params:        params,
				SenderAddress: cfg.Bitcoin.SenderAddress,
				PrivateKeyWIF: cfg.Bitcoin.PrivateKeyWIF,
				DustThreshold: cfg.Bitcoin.DustThreshold,
			},
			esplora.NewClient(cfg.Bitcoin.EsploraURL, client),
			mempool.NewClient(cfg.Bitcoin.FeeURL, client, cfg.Bitcoin.FallbackFee),
			poller,
			logger,
		)
		if er != nil {
			return nil, fmt.Errorf("failed to initialize bitcoin: %w", er)
		}
		adapters[types.NetworkUTXO] = network
		logger.Infof("initialized %s network for %s", params.Name, network.SenderAddress())
	}

	if cfg.Ethereum.PrivateKey != "" {
		rpc, er := evm.Dial(ctx, cfg.Ethereum.RpcURL)
		if er != nil {
			return nil, er
		}
		var chainID *big.Int
		if cfg.Ethereum.ChainID > 0 {
			chainID = big.NewInt(cfg.Ethereum.ChainID)
		}
		poller := status.NewPoller(types.NetworkEVM,
			cfg.Poll.options(evm.DefaultConfirmTimeout, evm.DefaultPollInterval), logger, pollerMetrics)
		network, er := evm.NewNetwork(evm.Config{
			PrivateKey:    cfg.Ethereum.PrivateKey,
			SenderAddress: cfg.Ethereum.SenderAddress,
			ChainID:       chainID,
		}, rpc, poller, logger)
		if er != nil {
			return nil, fmt.Errorf("failed to initialize ethereum: %w", er)
		}
		adapters[types.NetworkEVM] = network
		logger.Infof("initialized ethereum network for %s", network.SenderAddress())
	}

	if cfg.Tron.PrivateKey != "" {
		poller := status.NewPoller(types.NetworkResource,
			cfg.Poll.options(tron.DefaultConfirmTimeout, tron.DefaultPollInterval), logger, pollerMetrics)
		network, er := tron.NewNetwork(tron.Config{
			PrivateKey:    cfg.Tron.PrivateKey,
			SenderAddress: cfg.Tron.SenderAddress,
			FeeLimit:      cfg.Tron.FeeLimit,
		}, tron.NewClient(cfg.Tron.URL, client, cfg.Tron.ApiKey), poller, logger)
		if er != nil {
			return nil, fmt.Errorf("failed to initialize tron: %w", er)
		}
		adapters[types.NetworkResource] = network
		logger.Infof("initialized tron network for %s", network.SenderAddress())
	}

	if cfg.Ton.PrivateKey != "" {
		tonCfg := ton.Config{
			PrivateKey:    cfg.Ton.PrivateKey,
			SenderAddress: cfg.Ton.SenderAddress,
			DeployWait:    cfg.Ton.DeployWait,
			Comment:       cfg.Ton.Comment,
		}
		err = tonCfg.Validate()
		if err != nil {
			return nil, err
		}
		key, er := tonCfg.Key()
		if er != nil {
			return nil, er
		}
		api, er := ton.Dial(ctx, cfg.Ton.LiteConfigURL)
		if er != nil {
			return nil, er
		}
		wallet, er := ton.NewWallet(api, key)
		if er != nil {
			return nil, er
		}
		poller := status.NewPoller(types.NetworkCell,
			cfg.Poll.options(ton.DefaultConfirmTimeout, ton.DefaultPollInterval), logger, pollerMetrics)
		network, er := ton.NewNetwork(tonCfg, wallet, ton.NewExplorer(cfg.Ton.ExplorerURL, client, cfg.Ton.ApiKey), poller, logger)
		if er != nil {
			return nil, fmt.Errorf("failed to initialize ton: %w", er)
		}
		adapters[types.NetworkCell] = network
		logger.Infof("initialized ton network for %s", network.SenderAddress())
	}

	return &app{
		engine: engine.New(adapters, metrics.NewEngineMetrics(), logger),
		params: params,
		logger: logger,
	}, nil
}

// generateAddress needs no signing key, so it works for unconfigured networks too.
func (a *app) generateAddress(network types.NetworkID) (*types.GeneratedAddress, error) {
	_, err := a.engine.Get(network)
	if err == nil {
		return a.engine.GenerateAddress(network)
	}

	switch network {
	case types.NetworkUTXO:
		return btc.GenerateAddress(a.params)
	case types.NetworkEVM:
		return evm.GenerateAddress()
	case types.NetworkResource:
		return tron.GenerateAddress()
	case types.NetworkCell:
		return ton.GenerateAddress()
	default:
		return nil, fmt.Errorf("unknown network %s", network)
	}
}
