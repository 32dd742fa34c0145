package libhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/types"
)

const (
	DefaultRetries    = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// RetryRecorder counts retried requests per host.
type RetryRecorder interface {
	RecordRetry(host string)
}

// Client issues HTTP calls with a bounded number of fixed-delay retries.
type Client struct {
	http     *http.Client
	retries  int
	delay    time.Duration
	logger   logrus.FieldLogger
	recorder RetryRecorder
}

type Option func(*Client)

func WithRetries(n int) Option               { return func(c *Client) { c.retries = n } }
func WithRetryDelay(d time.Duration) Option  { return func(c *Client) { c.delay = d } }
func WithHTTPClient(h *http.Client) Option   { return func(c *Client) { c.http = h } }
func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.logger = l } }
func WithRecorder(r RetryRecorder) Option    { return func(c *Client) { c.recorder = r } }

func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		retries: DefaultRetries,
		delay:   DefaultRetryDelay,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retries < 0 {
		c.retries = 0
	}
	return c
}

// Once returns a copy of c that never retries. Broadcasts go through it.
func (c *Client) Once() *Client {
	cp := *c
	cp.retries = 0
	return &cp
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Do performs the request and returns the raw response body.
// A string or []byte body is sent verbatim, anything else as JSON.
func (c *Client) Do(
	ctx context.Context,
	method string,
	rawURL string,
	headers map[string]string,
	body any,
	query map[string]string,
) ([]byte, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	target, err := withQuery(rawURL, query)
	if err != nil {
		return nil, fmt.Errorf("failed to build url: %w", err)
	}

	op := method + " " + target
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if c.recorder != nil {
				c.recorder.RecordRetry(hostOf(target))
			}
			c.logger.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
			}).WithError(lastErr).Debug("retrying http call")

			timer := time.NewTimer(c.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		attempts++
		res, er := c.once(ctx, method, target, headers, payload, contentType)
		if er == nil {
			return res, nil
		}
		lastErr = er

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *StatusError
		if errors.As(er, &se) && !se.retryable() {
			break
		}
	}

	return nil, &types.ProviderError{Op: op, Attempts: attempts, Err: lastErr}
}

func (c *Client) once(
	ctx context.Context,
	method, target string,
	headers map[string]string,
	payload []byte,
	contentType string,
) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return b, nil
}

// Call performs the request and decodes the response into T.
// For T = string the trimmed body is returned as is.
func Call[T any](
	ctx context.Context,
	c *Client,
	method string,
	rawURL string,
	headers map[string]string,
	body any,
	query map[string]string,
) (T, error) {
	var out T

	b, err := c.Do(ctx, method, rawURL, headers, body, query)
	if err != nil {
		return out, err
	}

	if s, ok := any(&out).(*string); ok {
		*s = strings.TrimSpace(string(b))
		return out, nil
	}

	err = json.Unmarshal(b, &out)
	if err != nil {
		return out, fmt.Errorf("failed to decode response of %s %s: %w", method, rawURL, err)
	}
	return out, nil
}

// CallWithFallback is Call that substitutes fallback once retries are exhausted.
func CallWithFallback[T any](
	ctx context.Context,
	c *Client,
	method string,
	rawURL string,
	headers map[string]string,
	body any,
	query map[string]string,
	fallback T,
) (T, bool) {
	res, err := Call[T](ctx, c, method, rawURL, headers, body, query)
	if err != nil {
		c.logger.WithField("url", rawURL).WithError(err).Warn("http call failed, using fallback value")
		return fallback, false
	}
	return res, true
}

func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain", nil
	case []byte:
		return v, "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return b, "application/json", nil
	}
}

func withQuery(rawURL string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Host
}
