package btc

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/txengine/internal/utxo/address"
)

var fakeSig = append(make([]byte, 71), byte(txscript.SigHashAll))

func payTo(t *testing.T, addr string, value int64) *wire.TxOut {
	t.Helper()
	a, err := address.Decode(addr, params)
	require.NoError(t, err)
	script, err := a.PayToAddrScript()
	require.NoError(t, err)
	return wire.NewTxOut(value, script)
}

func segwitSpend(t *testing.T, outs ...*wire.TxOut) (*wire.MsgTx, string) {
	t.Helper()
	wif := testKey(t)
	tx := wire.NewMsgTx(wire.TxVersion)
	in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{7}, 0), nil, nil)
	in.Witness = wire.TxWitness{fakeSig, wif.SerializePubKey()}
	tx.AddTxIn(in)
	for _, o := range outs {
		tx.AddTxOut(o)
	}
	return tx, senderFor(t, wif, true).String()
}

func indexerWith(tx *wire.MsgTx, confirmed bool) *fakeIndexer {
	idx := newFakeIndexer()
	hash := tx.TxHash().String()
	idx.txs[hash] = tx
	idx.confirmed[hash] = confirmed
	return idx
}

func TestGetTransaction_ExcludesChange(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, true)

	tx, _ := segwitSpend(t,
		payTo(t, sender.String(), 17740),
		payTo(t, recipientAddr, 60000),
	)
	idx := indexerWith(tx, true)
	n := newTestNetwork(t, wif, sender, idx, 1)

	receipt, err := n.GetTransaction(context.Background(), tx.TxHash().String(), nil)
	require.NoError(t, err)
	assert.True(t, receipt.IsSuccess)
	assert.Equal(t, recipientAddr, receipt.Receiver)
	assert.Equal(t, "0.0006", receipt.ReceivedAmount.String())
}

func TestGetTransaction_FallsBackToFirstOutput(t *testing.T) {
	wif := testKey(t)
	sender := senderFor(t, wif, true)

	tx, _ := segwitSpend(t,
		wire.NewTxOut(0, []byte{txscript.OP_RETURN, 0x01, 0x01}),
		payTo(t, sender.String(), 40000),
		payTo(t, sender.String(), 1000),
	)
	idx := indexerWith(tx, false)
	n := newTestNetwork(t, wif, sender, idx, 1)

	receipt, err := n.GetTransaction(context.Background(), tx.TxHash().String(), nil)
	require.NoError(t, err)
	assert.False(t, receipt.IsSuccess)
	assert.Equal(t, sender.String(), receipt.Receiver)
	assert.Equal(t, "0.0004", receipt.ReceivedAmount.String())
}

func TestGetTransaction_LegacySenderDetected(t *testing.T) {
	wif := testKey(t)
	legacy := senderFor(t, wif, false)

	sigScript, err := txscript.NewScriptBuilder().AddData(fakeSig).AddData(wif.SerializePubKey()).Script()
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{5}, 1), sigScript, nil))
	tx.AddTxOut(payTo(t, legacy.String(), 5000))
	tx.AddTxOut(payTo(t, recipientAddr, 12345678))

	idx := indexerWith(tx, true)
	n := newTestNetwork(t, wif, legacy, idx, 1)

	receipt, err := n.GetTransaction(context.Background(), tx.TxHash().String(), nil)
	require.NoError(t, err)
	assert.Equal(t, recipientAddr, receipt.Receiver)
	assert.Equal(t, "0.12345678", receipt.ReceivedAmount.String())
}

func TestGetTransaction_NestedSegwitSender(t *testing.T) {
	wif := testKey(t)
	pub := wif.SerializePubKey()

	wpkh, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub), params)
	require.NoError(t, err)
	redeem, err := txscript.PayToAddrScript(wpkh)
	require.NoError(t, err)
	nested, err := btcutil.NewAddressScriptHash(redeem, params)
	require.NoError(t, err)
	sigScript, err := txscript.NewScriptBuilder().AddData(redeem).Script()
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{9}, 0), sigScript, nil)
	in.Witness = wire.TxWitness{fakeSig, pub}
	tx.AddTxIn(in)
	tx.AddTxOut(payTo(t, nested.EncodeAddress(), 17740))
	tx.AddTxOut(payTo(t, recipientAddr, 60000))

	idx := indexerWith(tx, true)
	idx.spent[tx.TxHash().String()] = []string{nested.EncodeAddress()}
	n := newTestNetwork(t, wif, senderFor(t, wif, true), idx, 1)

	receipt, err := n.GetTransaction(context.Background(), tx.TxHash().String(), nil)
	require.NoError(t, err)
	assert.Equal(t, recipientAddr, receipt.Receiver)
	assert.Equal(t, "0.0006", receipt.ReceivedAmount.String())
}

func TestGetTransaction_TaprootSender(t *testing.T) {
	wif := testKey(t)
	taproot, err := btcutil.NewAddressTaproot(bytes.Repeat([]byte{0x42}, 32), params)
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{8}, 3), nil, nil)
	in.Witness = wire.TxWitness{make([]byte, 64)}
	tx.AddTxIn(in)
	tx.AddTxOut(payTo(t, taproot.EncodeAddress(), 2500))
	tx.AddTxOut(payTo(t, recipientAddr, 100000))

	idx := indexerWith(tx, true)
	idx.spent[tx.TxHash().String()] = []string{taproot.EncodeAddress()}
	n := newTestNetwork(t, wif, senderFor(t, wif, true), idx, 1)

	receipt, err := n.GetTransaction(context.Background(), tx.TxHash().String(), nil)
	require.NoError(t, err)
	assert.Equal(t, recipientAddr, receipt.Receiver)
	assert.Equal(t, "0.001", receipt.ReceivedAmount.String())
}

func TestGetTransaction_NotFound(t *testing.T) {
	wif := testKey(t)
	n := newTestNetwork(t, wif, senderFor(t, wif, true), newFakeIndexer(), 1)

	_, err := n.GetTransaction(context.Background(), chainhash.Hash{4}.String(), nil)
	require.Error(t, err)
}
