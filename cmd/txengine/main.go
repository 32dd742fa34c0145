package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vultisig/txengine/internal/amount"
	"github.com/vultisig/txengine/internal/graceful"
	"github.com/vultisig/txengine/internal/metrics"
	"github.com/vultisig/txengine/internal/types"
)

var (
	flagCmd      = flag.String("cmd", "", "command to run: address, send or tx")
	flagNetwork  = flag.String("network", "", "network for address: UTXO, EVM, RESOURCE or CELL")
	flagCurrency = flag.String("currency", "", "currency code (BTC, USDT-TRC20, ...) or registry id")
	flagTo       = flag.String("to", "", "recipient address")
	flagAmount   = flag.String("amount", "", "amount in whole units, e.g. 0.0005")
	flagHash     = flag.String("hash", "", "transaction hash")
)

var commands = map[string]func(context.Context, *app) (any, error){
	"address": generateAddress,
	"send":    send,
	"tx":      getTransaction,
}

func main() {
	flag.Parse()

	cfg, err := newConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	run, ok := commands[*flagCmd]
	if !ok {
		logger.Fatalf("unknown command %q, expected address, send or tx", *flagCmd)
	}

	ctx, stop := graceful.WithCancel(context.Background(), logger)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	cmdCtx, cmdDone := context.WithCancel(gctx)
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics, metrics.AllServices, logger)
		g.Go(func() error {
			return srv.Run(cmdCtx)
		})
	}

	var out any
	g.Go(func() error {
		defer cmdDone()
		res, er := run(cmdCtx, a)
		if er != nil {
			return er
		}
		out = res
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.WithError(err).Errorf("%s failed", *flagCmd)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	err = enc.Encode(out)
	if err != nil {
		logger.Fatalf("failed to encode result: %v", err)
	}
}

func generateAddress(_ context.Context, a *app) (any, error) {
	network := types.NetworkID(strings.ToUpper(*flagNetwork))
	if network == "" && *flagCurrency != "" {
		c, err := lookupCurrency(*flagCurrency)
		if err != nil {
			return nil, err
		}
		network = c.Network
	}
	if !network.Valid() {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	return a.generateAddress(network)
}

func send(ctx context.Context, a *app) (any, error) {
	c, err := lookupCurrency(*flagCurrency)
	if err != nil {
		return nil, err
	}
	if *flagTo == "" {
		return nil, fmt.Errorf("-to is required")
	}
	value, err := amount.Parse(*flagAmount)
	if err != nil {
		return nil, err
	}
	return a.engine.Send(ctx, *flagTo, value, c)
}

func getTransaction(ctx context.Context, a *app) (any, error) {
	c, err := lookupCurrency(*flagCurrency)
	if err != nil {
		return nil, err
	}
	if *flagHash == "" {
		return nil, fmt.Errorf("-hash is required")
	}
	return a.engine.GetTransaction(ctx, *flagHash, c)
}

// lookupCurrency accepts a registry id or a code.
func lookupCurrency(s string) (types.Currency, error) {
	if s == "" {
		return types.Currency{}, fmt.Errorf("-currency is required")
	}
	id, err := strconv.Atoi(s)
	if err == nil {
		return types.CurrencyByID(id)
	}
	return types.CurrencyByCode(strings.ToUpper(s))
}
