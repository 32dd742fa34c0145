package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/vultisig/txengine/internal/libhttp"
)

// Client talks to a TronGrid-compatible full node HTTP API. All requests use
// visible=true, so addresses travel in base58check form.
type Client struct {
	baseURL string
	http    *libhttp.Client
	headers map[string]string
}

// NewClient creates a new TRON client with the given base URL
func NewClient(baseURL string, http *libhttp.Client, apiKey string) *Client {
	if http == nil {
		http = libhttp.New()
	}
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if apiKey != "" {
		headers["TRON-PRO-API-KEY"] = apiKey
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		headers: headers,
	}
}

// CreateTransaction creates an unsigned TRX transfer transaction
func (c *Client) CreateTransaction(ctx context.Context, req *TransferRequest) (*Transaction, error) {
	tx, err := libhttp.Call[Transaction](ctx, c.http, http.MethodPost, c.baseURL+"/wallet/createtransaction", c.headers, req, nil)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to create transaction: %w", err)
	}
	if tx.Error != "" {
		return nil, fmt.Errorf("tron: node rejected transfer: %s", tx.Error)
	}
	return &tx, nil
}

// TriggerSmartContract builds an unsigned contract call
func (c *Client) TriggerSmartContract(ctx context.Context, req *TRC20TransferRequest) (*Transaction, error) {
	res, err := libhttp.Call[triggerResponse](ctx, c.http, http.MethodPost, c.baseURL+"/wallet/triggersmartcontract", c.headers, req, nil)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to trigger smart contract: %w", err)
	}
	if !res.Result.Result || res.Transaction == nil {
		return nil, fmt.Errorf("tron: node rejected contract call: %s %s", res.Result.Code, decodeMessage(res.Result.Message))
	}
	return res.Transaction, nil
}

// BroadcastTransaction submits a signed transaction exactly once.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResponse, error) {
	res, err := libhttp.Call[BroadcastResponse](ctx, c.http.Once(), http.MethodPost, c.baseURL+"/wallet/broadcasttransaction", c.headers, tx, nil)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to broadcast transaction: %w", err)
	}
	if !res.Result {
		return nil, fmt.Errorf("tron: broadcast rejected: %s %s", res.Code, decodeMessage(res.Message))
	}
	return &res, nil
}

// GetTransactionByID returns the transaction, or one with an empty TxID when unknown.
func (c *Client) GetTransactionByID(ctx context.Context, txID string) (*Transaction, error) {
	tx, err := libhttp.Call[Transaction](ctx, c.http, http.MethodPost, c.baseURL+"/wallet/gettransactionbyid", c.headers, txIDRequest{
		Value:   txID,
		Visible: true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to get transaction: %w", err)
	}
	return &tx, nil
}

// GetTransactionInfoByID returns execution info; it is empty until the tx is in a block.
func (c *Client) GetTransactionInfoByID(ctx context.Context, txID string) (*TransactionInfo, error) {
	info, err := libhttp.Call[TransactionInfo](ctx, c.http, http.MethodPost, c.baseURL+"/wallet/gettransactioninfobyid", c.headers, txIDRequest{
		Value:   txID,
		Visible: true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to get transaction info: %w", err)
	}
	return &info, nil
}

// node error messages are hex-encoded ASCII
func decodeMessage(msg string) string {
	b, err := hex.DecodeString(msg)
	if err != nil {
		return msg
	}
	return string(b)
}
