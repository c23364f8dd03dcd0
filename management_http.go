package standalone

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPClient is the default ManagementClient. It speaks the standalone
// server's HTTP management endpoint: each operation is posted as a JSON
// envelope to /management and the response carries outcome, result, and
// failure-description fields. Deployment content travels base64-encoded
// inside the envelope.
type HTTPClient struct {
	// Info describes the management endpoint and credentials
	Info ConnectionInfo

	// DialTimeout is the timeout for establishing connections
	DialTimeout time.Duration

	// RequestTimeout is the timeout for one operation round trip
	RequestTimeout time.Duration

	// BackoffMin is the minimum duration between retry attempts
	BackoffMin time.Duration

	// BackoffMax is the maximum duration between retry attempts
	BackoffMax time.Duration

	// MaxAttempts is the maximum number of attempts for one operation
	MaxAttempts int

	httpc  *http.Client
	mu     sync.Mutex
	closed bool
}

// HTTPOption configures an HTTPClient
type HTTPOption func(*HTTPClient)

// WithDialTimeout sets the timeout for management connections
func WithDialTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.DialTimeout = d
	}
}

// WithRequestTimeout sets the timeout for one operation round trip
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.RequestTimeout = d
	}
}

// WithBackoff sets the minimum and maximum backoff durations for retries
func WithBackoff(minBackoff, maxBackoff time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.BackoffMin = minBackoff
		c.BackoffMax = maxBackoff
	}
}

// WithMaxAttempts sets the maximum number of attempts per operation
func WithMaxAttempts(n int) HTTPOption {
	return func(c *HTTPClient) {
		c.MaxAttempts = n
	}
}

// NewHTTPClient creates a management client for the given endpoint
func NewHTTPClient(info ConnectionInfo, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		Info:           info,
		DialTimeout:    DefaultDialTimeout,
		RequestTimeout: DefaultRequestTimeout,
		BackoffMin:     DefaultBackoffMin,
		BackoffMax:     DefaultBackoffMax,
		MaxAttempts:    DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpc = &http.Client{
		Timeout: c.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: c.DialTimeout}).DialContext,
		},
	}

	return c
}

// endpoint returns the management URL
func (c *HTTPClient) endpoint() string {
	return fmt.Sprintf("http://%s/management", net.JoinHostPort(c.Info.Host, fmt.Sprintf("%d", c.Info.Port)))
}

// Execute posts one operation envelope and decodes the structured result.
// Connection failures are retried with capped exponential backoff; HTTP
// and management-level failures are not retried.
func (c *HTTPClient) Execute(ctx context.Context, op Operation) (Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{}, &OpError{Op: op.Name, Path: c.endpoint(), Err: ErrClientClosed}
	}
	c.mu.Unlock()

	body, err := encodeOperation(op)
	if err != nil {
		return Result{}, &OpError{Op: op.Name, Path: c.endpoint(), Err: err}
	}

	var lastErr error
	backoff := c.BackoffMin

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > c.BackoffMax {
				backoff = c.BackoffMax
			}
		}

		res, err := c.post(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// Only dial-level failures are worth retrying; a server that
		// answered has given its final word.
		if !retryable(err) {
			break
		}
	}

	return Result{}, &OpError{Op: op.Name, Path: c.endpoint(), Err: lastErr}
}

// post performs a single HTTP round trip
func (c *HTTPClient) post(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Info.Credentials != nil {
		user, password := c.Info.Credentials()
		req.SetBasicAuth(user, password)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return Result{}, fmt.Errorf("management authentication rejected (status %d)", resp.StatusCode)
	}

	var envelope struct {
		Outcome            string          `json:"outcome"`
		Result             json.RawMessage `json:"result"`
		FailureDescription json.RawMessage `json:"failure-description"`
		ResponseHeaders    struct {
			ProcessState string `json:"process-state"`
		} `json:"response-headers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Result{}, fmt.Errorf("decoding management response: %w", err)
	}

	state := ParseServerState(envelope.ResponseHeaders.ProcessState)
	return Result{
		Outcome:            ParseOutcome(envelope.Outcome),
		Result:             flattenScalar(envelope.Result),
		FailureDescription: flattenScalar(envelope.FailureDescription),
		RequiresReload:     state == ServerStateReloadRequired || state == ServerStateRestartRequired,
	}, nil
}

// Close releases the client's idle connections. Close is idempotent.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.httpc.CloseIdleConnections()
	return nil
}

// encodeOperation builds the JSON envelope for an operation. The address
// is encoded as a list of single-pair objects; content as base64 bytes.
func encodeOperation(op Operation) ([]byte, error) {
	envelope := make(map[string]any, len(op.Params)+3)
	envelope["operation"] = op.Name

	address := make([]map[string]string, 0, len(op.Address)/2)
	for i := 0; i+1 < len(op.Address); i += 2 {
		address = append(address, map[string]string{op.Address[i]: op.Address[i+1]})
	}
	envelope["address"] = address

	for k, v := range op.Params {
		envelope[k] = v
	}

	if op.Content != nil {
		envelope["content"] = []map[string]string{
			{"bytes": base64.StdEncoding.EncodeToString(op.Content)},
		}
	}

	return json.Marshal(envelope)
}

// flattenScalar renders a raw JSON value as a plain string
func flattenScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// retryable reports whether an error is a connection-level failure
func retryable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
