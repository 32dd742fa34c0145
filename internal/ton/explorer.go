package ton

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vultisig/txengine/internal/libhttp"
)

// Explorer is a tonapi.io compatible REST client.
type Explorer struct {
	url     string
	http    *libhttp.Client
	headers map[string]string
}

func NewExplorer(baseURL string, http *libhttp.Client, apiKey string) *Explorer {
	if http == nil {
		http = libhttp.New()
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Explorer{
		url:     strings.TrimRight(baseURL, "/"),
		http:    http,
		headers: headers,
	}
}

type AccountRef struct {
	Address string `json:"address"`
}

type Message struct {
	Hash        string      `json:"hash"`
	MsgType     string      `json:"msg_type"`
	Value       int64       `json:"value"`
	Source      *AccountRef `json:"source,omitempty"`
	Destination *AccountRef `json:"destination,omitempty"`
}

type Transaction struct {
	Hash      string    `json:"hash"`
	Lt        int64     `json:"lt"`
	Success   bool      `json:"success"`
	Aborted   bool      `json:"aborted"`
	TotalFees int64     `json:"total_fees"`
	InMsg     *Message  `json:"in_msg,omitempty"`
	OutMsgs   []Message `json:"out_msgs,omitempty"`
}

// GetTransaction looks a transaction up by its hash.
func (e *Explorer) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	tx, err := libhttp.Call[Transaction](ctx, e.http, http.MethodGet,
		e.url+"/v2/blockchain/transactions/"+url.PathEscape(hash), e.headers, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to get transaction %s: %w", hash, err)
	}
	return &tx, nil
}

// TransactionByMessage finds the transaction an inbound message (e.g. our external
// transfer message) was processed in.
func (e *Explorer) TransactionByMessage(ctx context.Context, msgHash string) (*Transaction, error) {
	tx, err := libhttp.Call[Transaction](ctx, e.http, http.MethodGet,
		e.url+"/v2/blockchain/messages/"+url.PathEscape(msgHash)+"/transaction", e.headers, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to get transaction of message %s: %w", msgHash, err)
	}
	return &tx, nil
}

func isNotFound(err error) bool {
	var se *libhttp.StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
