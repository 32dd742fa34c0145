package tron

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/txengine/internal/libhttp"
	"github.com/vultisig/txengine/internal/status"
	"github.com/vultisig/txengine/internal/types"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var recipientEVM = ecommon.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func testSender(t *testing.T) string {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return address.PubkeyToAddress(key.PublicKey).String()
}

func testRecipient() string { return fromEVMBytes(recipientEVM.Bytes()) }

// fakeNode is an in-memory TronGrid full node.
type fakeNode struct {
	t *testing.T

	mu         sync.Mutex
	infoResult string
	fee        int64
	pending    int
	triggers   []TRC20TransferRequest
	transfers  []TransferRequest
	broadcasts []Transaction
	txs        map[string]json.RawMessage
	infos      map[string]json.RawMessage
}

func newFakeNode(t *testing.T) *fakeNode {
	return &fakeNode{
		t:     t,
		fee:   1_100_000,
		txs:   make(map[string]json.RawMessage),
		infos: make(map[string]json.RawMessage),
	}
}

func unsignedTx(rawData string, rawHex string) Transaction {
	b, _ := hex.DecodeString(rawHex)
	sum := sha256.Sum256(b)
	return Transaction{
		TxID:       hex.EncodeToString(sum[:]),
		RawData:    json.RawMessage(rawData),
		RawDataHex: rawHex,
		Visible:    true,
	}
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(v))
	}

	switch r.URL.Path {
	case "/wallet/createtransaction":
		var req TransferRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.transfers = append(f.transfers, req)
		rawData := fmt.Sprintf(`{"contract":[{"parameter":{"value":{"amount":%d,"owner_address":%q,"to_address":%q},"type_url":"type.googleapis.com/protocol.TransferContract"},"type":"TransferContract"}],"ref_block_bytes":"b2b3","ref_block_hash":"6bb0b5b6a2e6f0e1","expiration":1700000060000,"timestamp":1700000000000}`,
			req.Amount, req.OwnerAddress, req.ToAddress)
		write(unsignedTx(rawData, "0a02b2b322086bb0b5b6a2e6f0e1"))
	case "/wallet/triggersmartcontract":
		var req TRC20TransferRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.triggers = append(f.triggers, req)
		rawData := fmt.Sprintf(`{"contract":[{"parameter":{"value":{"data":"a9059cbb%s","owner_address":%q,"contract_address":%q},"type_url":"type.googleapis.com/protocol.TriggerSmartContract"},"type":"TriggerSmartContract"}],"ref_block_bytes":"c0c1","ref_block_hash":"aabbccdd00112233","expiration":1700000060000,"fee_limit":%d,"timestamp":1700000000000}`,
			req.Parameter, req.OwnerAddress, req.ContractAddress, req.FeeLimit)
		tx := unsignedTx(rawData, "0a02c0c12208aabbccdd00112233")
		write(map[string]any{"result": map[string]any{"result": true}, "transaction": tx})
	case "/wallet/broadcasttransaction":
		var tx Transaction
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&tx))
		f.broadcasts = append(f.broadcasts, tx)
		tx.Ret = []ResultRet{{ContractRet: ResultSuccess}}
		body, _ := json.Marshal(tx)
		f.txs[tx.TxID] = body
		info := map[string]any{"id": tx.TxID, "fee": f.fee, "blockNumber": 1000, "receipt": map[string]any{"net_fee": f.fee}}
		if f.infoResult != "" {
			info["result"] = "FAILED"
			info["resMessage"] = hex.EncodeToString([]byte(f.infoResult))
			info["receipt"] = map[string]any{"result": "REVERT"}
		}
		infoBody, _ := json.Marshal(info)
		f.infos[tx.TxID] = infoBody
		write(BroadcastResponse{Result: true, TxID: tx.TxID})
	case "/wallet/gettransactioninfobyid", "/wallet/gettransactionbyid":
		var req txIDRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		store := f.infos
		if r.URL.Path == "/wallet/gettransactionbyid" {
			store = f.txs
		} else if f.pending > 0 {
			f.pending--
			_, _ = w.Write([]byte(`{}`))
			return
		}
		body, ok := store[req.Value]
		if !ok {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write(body)
	default:
		http.NotFound(w, r)
	}
}

func newTestNetwork(t *testing.T, node *fakeNode, cfg Config) *Network {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, libhttp.New(libhttp.WithRetries(1), libhttp.WithRetryDelay(time.Millisecond)), "key")
	poller := status.NewPoller(types.NetworkResource, status.Options{
		Timeout:  time.Second,
		Interval: 5 * time.Millisecond,
	}, logrus.New(), nil)

	if cfg.PrivateKey == "" {
		cfg.PrivateKey = testKeyHex
	}
	n, err := NewNetwork(cfg, client, poller, logrus.New())
	require.NoError(t, err)
	return n
}

func verifySignature(t *testing.T, tx Transaction, sender string) {
	t.Helper()
	require.Len(t, tx.Signature, 1)
	sig, err := hex.DecodeString(tx.Signature[0])
	require.NoError(t, err)
	require.Len(t, sig, 65)

	raw, err := hex.DecodeString(tx.RawDataHex)
	require.NoError(t, err)
	hash := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(hash[:]), tx.TxID)

	pub, err := crypto.SigToPub(hash[:], sig)
	require.NoError(t, err)
	assert.Equal(t, sender, address.PubkeyToAddress(*pub).String())
}

func TestNewNetwork_Config(t *testing.T) {
	_, err := NewNetwork(Config{}, nil, nil, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewNetwork(Config{PrivateKey: "zz"}, NewClient("http://localhost", nil, ""), nil, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewNetwork(Config{PrivateKey: testKeyHex, SenderAddress: "not-an-address"}, NewClient("http://localhost", nil, ""), nil, nil)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = NewNetwork(Config{PrivateKey: testKeyHex, SenderAddress: testRecipient()}, NewClient("http://localhost", nil, ""), nil, nil)
	var mismatch *types.AddressKeyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, testSender(t), mismatch.Derived)

	n, err := NewNetwork(Config{PrivateKey: "0x" + testKeyHex, SenderAddress: testSender(t)}, NewClient("http://localhost", nil, ""), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTRC20FeeLimit, n.feeLimit)
}

func TestSend_Native(t *testing.T) {
	node := newFakeNode(t)
	node.pending = 2
	n := newTestNetwork(t, node, Config{})

	trx, err := types.CurrencyByCode("TRX")
	require.NoError(t, err)

	res, err := n.Send(context.Background(), testRecipient(), decimal.RequireFromString("1.5"), trx)
	require.NoError(t, err)

	assert.Equal(t, "1.5", res.SentAmount)
	assert.Equal(t, "1.1", res.Fee)
	assert.Equal(t, trx, res.Currency)

	require.Len(t, node.transfers, 1)
	assert.Equal(t, int64(1_500_000), node.transfers[0].Amount)
	assert.Equal(t, testSender(t), node.transfers[0].OwnerAddress)
	assert.Equal(t, testRecipient(), node.transfers[0].ToAddress)

	require.Len(t, node.broadcasts, 1)
	assert.Equal(t, res.TxHash, node.broadcasts[0].TxID)
	verifySignature(t, node.broadcasts[0], testSender(t))
}

func TestSend_TRC20(t *testing.T) {
	node := newFakeNode(t)
	n := newTestNetwork(t, node, Config{FeeLimit: 50_000_000})

	usdt, err := types.CurrencyByCode("USDT-TRC20")
	require.NoError(t, err)

	res, err := n.Send(context.Background(), testRecipient(), decimal.RequireFromString("10"), usdt)
	require.NoError(t, err)
	assert.Equal(t, "10", res.SentAmount)

	require.Len(t, node.triggers, 1)
	req := node.triggers[0]
	assert.Equal(t, "transfer(address,uint256)", req.FunctionSelector)
	assert.Equal(t, types.USDTTRC20Contract, req.ContractAddress)
	assert.Equal(t, int64(50_000_000), req.FeeLimit)
	assert.Equal(t,
		"000000000000000000000000"+strings.ToLower(recipientEVM.Hex()[2:])+
			fmt.Sprintf("%064x", 10_000_000),
		req.Parameter)

	verifySignature(t, node.broadcasts[0], testSender(t))
}

func TestSend_Reverted(t *testing.T) {
	node := newFakeNode(t)
	node.infoResult = "REVERT opcode executed"
	n := newTestNetwork(t, node, Config{})

	usdt, err := types.CurrencyByCode("USDT-TRC20")
	require.NoError(t, err)

	_, err = n.Send(context.Background(), testRecipient(), decimal.RequireFromString("1"), usdt)
	var reverted *types.TransactionRevertedError
	require.ErrorAs(t, err, &reverted)
	assert.Contains(t, reverted.Reason, "REVERT opcode executed")
}

func TestSend_Validation(t *testing.T) {
	node := newFakeNode(t)
	n := newTestNetwork(t, node, Config{})
	trx, err := types.CurrencyByCode("TRX")
	require.NoError(t, err)
	eth, err := types.CurrencyByCode("ETH")
	require.NoError(t, err)

	_, err = n.Send(context.Background(), testRecipient(), decimal.RequireFromString("1"), eth)
	assert.ErrorIs(t, err, types.ErrUnsupportedCurrency)

	_, err = n.Send(context.Background(), recipientEVM.Hex(), decimal.RequireFromString("1"), trx)
	assert.Error(t, err)

	_, err = n.Send(context.Background(), testRecipient(), decimal.Zero, trx)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	assert.Empty(t, node.broadcasts)
}

func TestGetTransaction_Transfer(t *testing.T) {
	node := newFakeNode(t)
	n := newTestNetwork(t, node, Config{})
	trx, err := types.CurrencyByCode("TRX")
	require.NoError(t, err)

	res, err := n.Send(context.Background(), testRecipient(), decimal.RequireFromString("2.25"), trx)
	require.NoError(t, err)

	receipt, err := n.GetTransaction(context.Background(), res.TxHash, nil)
	require.NoError(t, err)
	assert.True(t, receipt.IsSuccess)
	assert.Equal(t, testRecipient(), receipt.Receiver)
	assert.Equal(t, "2.25", receipt.ReceivedAmount.String())
}

func TestGetTransaction_TRC20Calldata(t *testing.T) {
	node := newFakeNode(t)
	n := newTestNetwork(t, node, Config{})
	usdt, err := types.CurrencyByCode("USDT-TRC20")
	require.NoError(t, err)

	res, err := n.Send(context.Background(), testRecipient(), decimal.RequireFromString("42.5"), usdt)
	require.NoError(t, err)

	receipt, err := n.GetTransaction(context.Background(), res.TxHash, &usdt)
	require.NoError(t, err)
	assert.True(t, receipt.IsSuccess)
	assert.Equal(t, testRecipient(), receipt.Receiver)
	assert.Equal(t, "42.5", receipt.ReceivedAmount.String())
}

func TestGetTransaction_NotFound(t *testing.T) {
	n := newTestNetwork(t, newFakeNode(t), Config{})
	_, err := n.GetTransaction(context.Background(), "deadbeef", nil)
	assert.Error(t, err)
}

func TestDecodeTransferLog(t *testing.T) {
	contract, err := address.Base58ToAddress(types.USDTTRC20Contract)
	require.NoError(t, err)
	info := &TransactionInfo{
		BlockNumber: 5,
		Log: []EventLog{
			{Address: "1111111111111111111111111111111111111111", Topics: []string{trc20TransferTopic, "00", "00"}, Data: "01"},
			{
				Address: hex.EncodeToString(contract[1:]),
				Topics: []string{
					trc20TransferTopic,
					"000000000000000000000000" + strings.Repeat("ab", 20),
					"000000000000000000000000" + strings.ToLower(recipientEVM.Hex()[2:]),
				},
				Data: fmt.Sprintf("%064x", 3_000_000),
			},
		},
	}

	to, amt := decodeTransferLog(info, types.USDTTRC20Contract)
	assert.Equal(t, testRecipient(), to)
	assert.Equal(t, big.NewInt(3_000_000).String(), amt.String())

	to, amt = decodeContract(Contract{Type: ContractTypeTriggerSmart, Parameter: Parameter{Value: Value{Data: "deadbeef"}}}, info, "")
	assert.Equal(t, strings.Repeat("00", 20), hex.EncodeToString(mustParse(t, to)[1:]))
	assert.Equal(t, "1", amt.String())
}

func mustParse(t *testing.T, s string) address.Address {
	t.Helper()
	addr, err := parseAddress(s)
	require.NoError(t, err)
	return addr
}

func TestTxSucceeded(t *testing.T) {
	ok := &Transaction{Ret: []ResultRet{{ContractRet: ResultSuccess}}}
	mined := &TransactionInfo{BlockNumber: 1}

	assert.True(t, txSucceeded(ok, mined))
	assert.False(t, txSucceeded(ok, &TransactionInfo{}))
	assert.False(t, txSucceeded(&Transaction{Ret: []ResultRet{{ContractRet: "OUT_OF_ENERGY"}}}, mined))
	assert.False(t, txSucceeded(ok, &TransactionInfo{BlockNumber: 1, Receipt: TxReceipt{Result: "REVERT"}}))
}

func TestNormalizeAddress(t *testing.T) {
	addr := mustParse(t, testRecipient())
	assert.Equal(t, testRecipient(), normalizeAddress(hex.EncodeToString(addr)))
	assert.Equal(t, testRecipient(), normalizeAddress(testRecipient()))
}

func TestGenerateAddress(t *testing.T) {
	gen, err := GenerateAddress()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gen.Address, "T"))
	key, err := crypto.HexToECDSA(gen.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, gen.Address, addressOf(key))
	_, err = parseAddress(gen.Address)
	require.NoError(t, err)
}

func TestClient_DecodesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("TRON-PRO-API-KEY"))
		_, _ = w.Write([]byte(`{"result":false,"code":"SIGERROR","message":"` + hex.EncodeToString([]byte("validate signature error")) + `"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, "key")
	_, err := c.BroadcastTransaction(context.Background(), &Transaction{TxID: "aa"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate signature error")
	assert.False(t, errors.Is(err, types.ErrProvider))
}
