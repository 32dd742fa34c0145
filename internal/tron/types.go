package tron

import (
	"encoding/json"
	"fmt"
)

const (
	ContractTypeTransfer     = "TransferContract"
	ContractTypeTriggerSmart = "TriggerSmartContract"

	ResultSuccess = "SUCCESS"
)

// TransferRequest represents a TRX transfer request
type TransferRequest struct {
	OwnerAddress string `json:"owner_address"`
	ToAddress    string `json:"to_address"`
	Amount       int64  `json:"amount"`
	Visible      bool   `json:"visible"`
}

// TRC20TransferRequest is the triggersmartcontract body for a token transfer
type TRC20TransferRequest struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter"`
	FeeLimit         int64  `json:"fee_limit"`
	CallValue        int64  `json:"call_value"`
	Visible          bool   `json:"visible"`
}

type txIDRequest struct {
	Value   string `json:"value"`
	Visible bool   `json:"visible"`
}

// Transaction represents a TRON transaction
type Transaction struct {
	TxID string `json:"txID"`
	// RawData is kept verbatim so that a broadcast echoes exactly what the node built.
	RawData    json.RawMessage `json:"raw_data,omitempty"`
	RawDataHex string          `json:"raw_data_hex"`
	Signature  []string        `json:"signature,omitempty"`
	Ret        []ResultRet     `json:"ret,omitempty"`
	Visible    bool            `json:"visible,omitempty"`

	// Error is set by the node instead of a transaction on a rejected build request.
	Error string `json:"Error,omitempty"`
}

type ResultRet struct {
	ContractRet string `json:"contractRet"`
}

// RawData represents the raw data of a TRON transaction
type RawData struct {
	Contract      []Contract `json:"contract"`
	RefBlockBytes string     `json:"ref_block_bytes"`
	RefBlockHash  string     `json:"ref_block_hash"`
	Expiration    int64      `json:"expiration"`
	Timestamp     int64      `json:"timestamp"`
	FeeLimit      int64      `json:"fee_limit,omitempty"`
	Data          string     `json:"data,omitempty"`
}

// Contract represents a contract in a TRON transaction
type Contract struct {
	Parameter Parameter `json:"parameter"`
	Type      string    `json:"type"`
}

// Parameter represents the parameter of a contract
type Parameter struct {
	Value   Value  `json:"value"`
	TypeUrl string `json:"type_url"`
}

// Value represents the value of a contract parameter
type Value struct {
	Amount          int64  `json:"amount,omitempty"`
	OwnerAddress    string `json:"owner_address"`
	ToAddress       string `json:"to_address,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	Data            string `json:"data,omitempty"`
	CallValue       int64  `json:"call_value,omitempty"`
}

type triggerResponse struct {
	Result struct {
		Result  bool   `json:"result"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"result"`
	Transaction *Transaction `json:"transaction"`
}

type BroadcastResponse struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// TransactionInfo is the gettransactioninfobyid record; empty until the tx is in a block.
type TransactionInfo struct {
	ID          string     `json:"id"`
	Fee         int64      `json:"fee"`
	BlockNumber int64      `json:"blockNumber"`
	Receipt     TxReceipt  `json:"receipt"`
	Log         []EventLog `json:"log,omitempty"`
	Result      string     `json:"result,omitempty"`
	ResMessage  string     `json:"resMessage,omitempty"`
}

type TxReceipt struct {
	EnergyFee   int64  `json:"energy_fee"`
	EnergyUsage int64  `json:"energy_usage_total"`
	NetFee      int64  `json:"net_fee"`
	Result      string `json:"result,omitempty"`
}

// EventLog carries hex strings without 0x; Address has no 0x41 prefix.
type EventLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// IsConfirmed lets the info record be returned from a status probe.
func (i *TransactionInfo) IsConfirmed() bool {
	return i != nil && i.BlockNumber > 0
}

// Failed reports a mined transaction whose execution did not succeed.
func (i *TransactionInfo) Failed() bool {
	if !i.IsConfirmed() {
		return false
	}
	if i.Result == "FAILED" {
		return true
	}
	return i.Receipt.Result != "" && i.Receipt.Result != ResultSuccess
}

// FeeSun is the total fee, falling back to the energy fee.
func (i *TransactionInfo) FeeSun() int64 {
	if i.Fee > 0 {
		return i.Fee
	}
	return i.Receipt.EnergyFee
}

// Raw decodes raw_data.
func (t *Transaction) Raw() (*RawData, error) {
	if len(t.RawData) == 0 {
		return nil, fmt.Errorf("tron: transaction %s has no raw_data", t.TxID)
	}
	var raw RawData
	err := json.Unmarshal(t.RawData, &raw)
	if err != nil {
		return nil, fmt.Errorf("tron: failed to decode raw_data: %w", err)
	}
	return &raw, nil
}
