package btc

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/txengine/internal/esplora"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
	"github.com/vultisig/txengine/internal/utxo"
	"github.com/vultisig/txengine/internal/utxo/address"
)

const recipientAddr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

var params = &chaincfg.MainNetParams

type fakeIndexer struct {
	utxos       []utxo.Utxo
	txs         map[string]*wire.MsgTx
	confirmed   map[string]bool
	spent       map[string][]string
	fetches     map[string]int
	broadcasted []*wire.MsgTx
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		txs:       make(map[string]*wire.MsgTx),
		confirmed: make(map[string]bool),
		spent:     make(map[string][]string),
		fetches:   make(map[string]int),
	}
}

func (f *fakeIndexer) ListUnspent(context.Context, string) ([]utxo.Utxo, error) {
	return f.utxos, nil
}

func (f *fakeIndexer) GetTransaction(_ context.Context, txHash string) (*wire.MsgTx, error) {
	f.fetches[txHash]++
	tx, ok := f.txs[txHash]
	if !ok {
		return nil, &types.ProviderError{Op: "GET /tx/" + txHash + "/hex", Attempts: 1}
	}
	return tx, nil
}

func (f *fakeIndexer) GetTxStatus(_ context.Context, txHash string) (esplora.TxStatus, error) {
	return esplora.TxStatus{Confirmed: f.confirmed[txHash]}, nil
}

func (f *fakeIndexer) GetTxInfo(_ context.Context, txHash string) (*esplora.TxInfo, error) {
	info := &esplora.TxInfo{TxID: txHash, Status: esplora.TxStatus{Confirmed: f.confirmed[txHash]}}
	for _, addr := range f.spent[txHash] {
		info.Vin = append(info.Vin, esplora.Vin{Prevout: &esplora.Output{ScriptPubKeyAddress: addr}})
	}
	return info, nil
}

func (f *fakeIndexer) SendRawTransaction(_ context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	f.broadcasted = append(f.broadcasted, tx)
	hash := tx.TxHash()
	f.confirmed[hash.String()] = true
	return &hash, nil
}

type staticFee float64

func (s staticFee) SatsPerByte(context.Context) (float64, error) { return float64(s), nil }

func testKey(t *testing.T) *btcutil.WIF {
	t.Helper()
	priv, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x11}, 32))
	wif, err := btcutil.NewWIF(priv, params, true)
	require.NoError(t, err)
	return wif
}

func senderFor(t *testing.T, wif *btcutil.WIF, segwit bool) address.UTXOAddress {
	t.Helper()
	addr, err := address.NewBTCAddressFromPubKey(wif.SerializePubKey(), segwit, params)
	require.NoError(t, err)
	return addr
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func fastPoller() *status.Poller {
	return status.NewPoller(types.NetworkUTXO, status.Options{
		Timeout:  time.Second,
		Interval: 5 * time.Millisecond,
	}, testLogger(), nil)
}

func btcCurrency(t *testing.T) types.Currency {
	t.Helper()
	c, err := types.CurrencyByCode("BTC")
	require.NoError(t, err)
	return c
}

func newTestNetwork(t *testing.T, wif *btcutil.WIF, sender address.UTXOAddress, idx *fakeIndexer, rate float64) *Network {
	t.Helper()
	n, err := NewNetwork(Config{
		Params:        params,
		SenderAddress: sender.String(),
		PrivateKeyWIF: wif.String(),
	}, idx, staticFee(rate), fastPoller(), testLogger())
	require.NoError(t, err)
	return n
}

func verifyInputs(t *testing.T, tx *wire.MsgTx, prevOuts map[wire.OutPoint]*wire.TxOut) {
	t.Helper()
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, in := range tx.TxIn {
		prev := prevOuts[in.PreviousOutPoint]
		require.NotNil(t, prev)
		vm, err := txscript.NewEngine(prev.PkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, prev.Value, fetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

func TestNewNetwork_AddressKeyMismatch(t *testing.T) {
	_, err := NewNetwork(Config{
		Params:        params,
		SenderAddress: recipientAddr,
		PrivateKeyWIF: testKey(t).String(),
	}, newFakeIndexer(), staticFee(1), nil, testLogger())
	require.ErrorIs(t, err, types.ErrAddressKeyMismatch)

	var mismatch *types.AddressKeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, recipientAddr, mismatch.Configured)
}

func TestNewNetwork_MissingConfig(t *testing.T) {
	_, err := NewNetwork(Config{Params: params, SenderAddress: recipientAddr}, newFakeIndexer(), staticFee(1), nil, nil)
	require.ErrorIs(t, err, types.ErrConfiguration)

	wif := testKey(t)
	_, err = NewNetwork(Config{
		Params:        params,
		SenderAddress: senderFor(t, wif, true).String(),
		PrivateKeyWIF: wif.String(),
	}, nil, staticFee(1), nil, nil)
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestSend_Segwit(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, true)
	senderScript, err := sender.PayToAddrScript()
	require.NoError(t, err)

	idx := newFakeIndexer()
	idx.utxos = []utxo.Utxo{
		{TxID: chainhash.Hash{1}.String(), OutputIndex: 0, Value: 10000},
		{TxID: chainhash.Hash{2}.String(), OutputIndex: 3, Value: 80000},
		{TxID: chainhash.Hash{3}.String(), OutputIndex: 1, Value: 50000},
	}

	n := newTestNetwork(t, wif, sender, idx, 10)
	res, err := n.Send(context.Background(), recipientAddr, decimal.RequireFromString("0.0006"), btcCurrency(t))
	require.NoError(t, err)

	require.Len(t, idx.broadcasted, 1)
	tx := idx.broadcasted[0]
	assert.Equal(t, tx.TxHash().String(), res.TxHash)
	assert.Equal(t, "0.0006", res.SentAmount)
	assert.Equal(t, "0.0000226", res.Fee)
	assert.Equal(t, "BTC", res.Currency.Code)

	require.Len(t, tx.TxIn, 1)
	assert.Equal(t, chainhash.Hash{2}, tx.TxIn[0].PreviousOutPoint.Hash)
	assert.Equal(t, uint32(3), tx.TxIn[0].PreviousOutPoint.Index)
	require.Len(t, tx.TxOut, 2)
	assert.Equal(t, int64(60000), tx.TxOut[0].Value)
	assert.Equal(t, int64(80000-60000-2260), tx.TxOut[1].Value)
	assert.Equal(t, senderScript, tx.TxOut[1].PkScript)
	assert.Empty(t, idx.fetches)

	verifyInputs(t, tx, map[wire.OutPoint]*wire.TxOut{
		tx.TxIn[0].PreviousOutPoint: wire.NewTxOut(80000, senderScript),
	})
}

func TestSend_LegacyFetchesPrevTxOnce(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, false)
	senderScript, err := sender.PayToAddrScript()
	require.NoError(t, err)

	prev := wire.NewMsgTx(wire.TxVersion)
	prev.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{9}, 0), nil, nil))
	prev.AddTxOut(wire.NewTxOut(50000, senderScript))
	prev.AddTxOut(wire.NewTxOut(30000, senderScript))
	prevHash := prev.TxHash().String()

	idx := newFakeIndexer()
	idx.txs[prevHash] = prev
	idx.utxos = []utxo.Utxo{
		{TxID: prevHash, OutputIndex: 0, Value: 50000},
		{TxID: prevHash, OutputIndex: 1, Value: 30000},
	}

	n := newTestNetwork(t, wif, sender, idx, 1)
	res, err := n.Send(context.Background(), recipientAddr, decimal.RequireFromString("0.0007"), btcCurrency(t))
	require.NoError(t, err)
	assert.Equal(t, "0.00000374", res.Fee)
	assert.Equal(t, 1, idx.fetches[prevHash])

	tx := idx.broadcasted[0]
	require.Len(t, tx.TxIn, 2)
	require.Len(t, tx.TxOut, 2)
	assert.Equal(t, int64(80000-70000-374), tx.TxOut[1].Value)

	verifyInputs(t, tx, map[wire.OutPoint]*wire.TxOut{
		tx.TxIn[0].PreviousOutPoint: prev.TxOut[tx.TxIn[0].PreviousOutPoint.Index],
		tx.TxIn[1].PreviousOutPoint: prev.TxOut[tx.TxIn[1].PreviousOutPoint.Index],
	})
}

func TestSend_InsufficientBalance(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, true)

	idx := newFakeIndexer()
	idx.utxos = []utxo.Utxo{
		{TxID: chainhash.Hash{1}.String(), Value: 80000},
		{TxID: chainhash.Hash{2}.String(), Value: 50000},
		{TxID: chainhash.Hash{3}.String(), Value: 10000},
	}

	n := newTestNetwork(t, wif, sender, idx, 10)
	_, err := n.Send(context.Background(), recipientAddr, decimal.RequireFromString("0.002"), btcCurrency(t))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Empty(t, idx.broadcasted)
}

func TestSend_RejectsBadInput(t *testing.T) {
	wif := testKey(t)
	n := newTestNetwork(t, wif, senderFor(t, wif, true), newFakeIndexer(), 10)

	_, err := n.Send(context.Background(), recipientAddr, decimal.RequireFromString("0.000000001"), btcCurrency(t))
	require.ErrorIs(t, err, types.ErrPrecisionExceeded)

	eth, err := types.CurrencyByCode("ETH")
	require.NoError(t, err)
	_, err = n.Send(context.Background(), recipientAddr, decimal.RequireFromString("1"), eth)
	require.ErrorIs(t, err, types.ErrUnsupportedCurrency)

	_, err = n.Send(context.Background(), "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", decimal.RequireFromString("0.001"), btcCurrency(t))
	require.Error(t, err)
}

func TestSend_ConfirmationTimeout(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, true)

	idx := &neverConfirms{fakeIndexer: newFakeIndexer()}
	idx.utxos = []utxo.Utxo{{TxID: chainhash.Hash{1}.String(), Value: 100000}}

	n, err := NewNetwork(Config{
		Params:        params,
		SenderAddress: sender.String(),
		PrivateKeyWIF: wif.String(),
	}, idx, staticFee(1), status.NewPoller(types.NetworkUTXO, status.Options{
		Timeout:  50 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	}, testLogger(), nil), testLogger())
	require.NoError(t, err)

	_, err = n.Send(context.Background(), recipientAddr, decimal.RequireFromString("0.0005"), btcCurrency(t))
	require.ErrorIs(t, err, types.ErrConfirmationTimeout)

	var te *types.ConfirmationTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, idx.broadcasted[0].TxHash().String(), te.TxID)
}

type neverConfirms struct{ *fakeIndexer }

func (n *neverConfirms) GetTxStatus(context.Context, string) (esplora.TxStatus, error) {
	return esplora.TxStatus{}, nil
}

func TestGenerateAddress(t *testing.T) {
	res, err := GenerateAddress(params)
	require.NoError(t, err)

	wif, err := btcutil.DecodeWIF(res.PrivateKey)
	require.NoError(t, err)
	assert.True(t, wif.IsForNet(params))

	derived := senderFor(t, wif, true)
	assert.Equal(t, derived.String(), res.Address)
	assert.Contains(t, res.Address, "bc1q")

	other, err := GenerateAddress(params)
	require.NoError(t, err)
	assert.NotEqual(t, res.Address, other.Address)
}
