package main

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kelseyhightower/envconfig"

	"github.com/vultisig/txengine/internal/metrics"
	"github.com/vultisig/txengine/internal/status"
)

type config struct {
	LogLevel string `default:"info"`
	Bitcoin  bitcoinConfig
	Ethereum ethereumConfig
	Tron     tronConfig
	Ton      tonConfig
	Poll     pollConfig
	Http     httpConfig
	Metrics  metrics.Config
}

type bitcoinConfig struct {
	Network       string `default:"mainnet"`
	EsploraURL    string `default:"https://blockstream.info/api"`
	FeeURL        string `default:"https://mempool.space/api"`
	FallbackFee   float64
	SenderAddress string
	PrivateKeyWIF string
	DustThreshold uint64
}

type ethereumConfig struct {
	RpcURL        string
	PrivateKey    string
	SenderAddress string
	ChainID       int64
}

type tronConfig struct {
	URL           string `default:"https://api.trongrid.io"`
	ApiKey        string
	PrivateKey    string
	SenderAddress string
	FeeLimit      int64
}

type tonConfig struct {
	LiteConfigURL string `default:"https://ton.org/global.config.json"`
	ExplorerURL   string `default:"https://tonapi.io"`
	ApiKey        string
	PrivateKey    string
	SenderAddress string
	DeployWait    time.Duration
	Comment       string
}

// pollConfig overrides every adapter's confirmation defaults when set.
type pollConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

type httpConfig struct {
	Retries    int           `default:"3"`
	RetryDelay time.Duration `default:"1s"`
	Timeout    time.Duration `default:"30s"`
}

func newConfig() (config, error) {
	var cfg config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}

func (c bitcoinConfig) params() (*chaincfg.Params, error) {
	switch c.Network {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", c.Network)
	}
}

// options overlays the configured values on an adapter's defaults.
func (c pollConfig) options(timeout, interval time.Duration) status.Options {
	opts := status.Options{Timeout: timeout, Interval: interval}
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	if c.Interval > 0 {
		opts.Interval = c.Interval
	}
	return opts
}
