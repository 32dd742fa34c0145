package mempool

import (
	"context"
	"net/http"
	"strings"

	"github.com/vultisig/txengine/internal/libhttp"
)

const DefaultFallbackSatsPerByte = 10

// Client reads recommended fee rates from a mempool.space-compatible service.
// It implements utxo.FeeProvider.
type Client struct {
	url      string
	http     *libhttp.Client
	fallback float64
}

func NewClient(url string, http *libhttp.Client, fallback float64) *Client {
	if http == nil {
		http = libhttp.New()
	}
	if fallback <= 0 {
		fallback = DefaultFallbackSatsPerByte
	}
	return &Client{
		url:      strings.TrimRight(url, "/"),
		http:     http,
		fallback: fallback,
	}
}

type RecommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// SatsPerByte returns fastestFee, or the static fallback rate when the service
// is unreachable or reports nothing usable. It never fails.
func (c *Client) SatsPerByte(ctx context.Context) (float64, error) {
	if c.url == "" {
		return c.fallback, nil
	}

	res, ok := libhttp.CallWithFallback(
		ctx,
		c.http,
		http.MethodGet,
		c.url+"/v1/fees/recommended",
		nil,
		nil,
		nil,
		RecommendedFees{FastestFee: c.fallback},
	)
	if !ok || res.FastestFee <= 0 {
		return c.fallback, nil
	}
	return res.FastestFee, nil
}
