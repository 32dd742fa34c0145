package esplora

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/vultisig/txengine/internal/libhttp"
	"github.com/vultisig/txengine/internal/utxo"
)

// Client talks to an Esplora-compatible UTXO indexer (blockstream.info, mempool.space).
type Client struct {
	url  string
	http *libhttp.Client
}

func NewClient(url string, http *libhttp.Client) *Client {
	if http == nil {
		http = libhttp.New()
	}
	return &Client{
		url:  strings.TrimRight(url, "/"),
		http: http,
	}
}

type Utxo struct {
	TxID   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Value  uint64   `json:"value"`
	Status TxStatus `json:"status"`
}

type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height,omitempty"`
	BlockHash   string `json:"block_hash,omitempty"`
}

// IsConfirmed lets a TxStatus be returned straight from a status probe.
func (s TxStatus) IsConfirmed() bool { return s.Confirmed }

// TxInfo is the indexer's decoded view of a transaction.
type TxInfo struct {
	TxID   string   `json:"txid"`
	Status TxStatus `json:"status"`
	Vin    []Vin    `json:"vin"`
}

type Vin struct {
	TxID    string  `json:"txid"`
	Vout    uint32  `json:"vout"`
	Prevout *Output `json:"prevout"`
}

type Output struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyType    string `json:"scriptpubkey_type"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               uint64 `json:"value"`
}

// SenderAddresses lists the distinct addresses of the outputs the transaction spends.
// Inputs whose previous output has no standard address are skipped.
func (t *TxInfo) SenderAddresses() []string {
	seen := make(map[string]struct{}, len(t.Vin))
	var out []string
	for _, in := range t.Vin {
		if in.Prevout == nil || in.Prevout.ScriptPubKeyAddress == "" {
			continue
		}
		addr := in.Prevout.ScriptPubKeyAddress
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// ListUnspent fetches every unspent output of address, confirmed or not.
func (c *Client) ListUnspent(ctx context.Context, address string) ([]utxo.Utxo, error) {
	res, err := libhttp.Call[[]Utxo](
		ctx,
		c.http,
		http.MethodGet,
		c.url+"/address/"+url.PathEscape(address)+"/utxo",
		nil,
		nil,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to fetch utxos of %s: %w", address, err)
	}

	out := make([]utxo.Utxo, 0, len(res))
	for _, u := range res {
		out = append(out, utxo.Utxo{
			TxID:        u.TxID,
			OutputIndex: u.Vout,
			Value:       u.Value,
		})
	}
	return out, nil
}

// GetRawTransaction returns the serialized transaction, used for legacy inputs
// that must carry their full previous transaction.
func (c *Client) GetRawTransaction(ctx context.Context, txHash string) ([]byte, error) {
	res, err := libhttp.Call[string](
		ctx,
		c.http,
		http.MethodGet,
		c.url+"/tx/"+url.PathEscape(txHash)+"/hex",
		nil,
		nil,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to get raw tx: %w", err)
	}

	b, err := hex.DecodeString(res)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to decode raw tx %s: %w", txHash, err)
	}
	return b, nil
}

// GetTransaction fetches and deserializes a transaction.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*wire.MsgTx, error) {
	raw, err := c.GetRawTransaction(ctx, txHash)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	err = tx.Deserialize(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to deserialize tx %s: %w", txHash, err)
	}
	return tx, nil
}

// GetTxInfo fetches the transaction's status and spent outputs.
func (c *Client) GetTxInfo(ctx context.Context, txHash string) (*TxInfo, error) {
	res, err := libhttp.Call[TxInfo](
		ctx,
		c.http,
		http.MethodGet,
		c.url+"/tx/"+url.PathEscape(txHash),
		nil,
		nil,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to get tx: %w", err)
	}
	return &res, nil
}

func (c *Client) GetTxStatus(ctx context.Context, txHash string) (TxStatus, error) {
	info, err := c.GetTxInfo(ctx, txHash)
	if err != nil {
		return TxStatus{}, err
	}
	return info.Status, nil
}

// SendRawTransaction broadcasts tx exactly once; a failed broadcast is never retried
// since the node may already have accepted it.
func (c *Client) SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	var b bytes.Buffer
	err := tx.Serialize(&b)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to serialize tx: %w", err)
	}

	res, err := libhttp.Call[string](
		ctx,
		c.http.Once(),
		http.MethodPost,
		c.url+"/tx",
		nil,
		hex.EncodeToString(b.Bytes()),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to push tx: %w", err)
	}

	hash, err := chainhash.NewHashFromStr(res)
	if err != nil {
		return nil, fmt.Errorf("esplora: failed to parse tx hash %q: %w", res, err)
	}
	return hash, nil
}
