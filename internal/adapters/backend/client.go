// Package backend is the HTTP client for the evently backend.
//
// Every operation sends one request with a fixed shape and returns either a
// typed result or a typed error (*NetworkError, *APIError, ErrDecode,
// ErrInvalidRequest). There are no retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/evently/pkg/logger"
	"github.com/okian/evently/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	contentTypeJSON = "application/json"
	maxBodyBytes    = 8 << 20
)

// Client talks to the backend rooted at a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	log     logger.Logger
}

// New creates a client for baseURL, which must be an absolute http(s) URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not an absolute http url", ErrInvalidRequest, baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{},
		timeout: defaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string { return c.base.String() }

// do sends one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRequest, op, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRequest, op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(ctx, op, "network", start, requestID)
		return &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug(ctx, "failed to close response body", logger.String("op", op), logger.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(ctx, op, "network", start, requestID)
		return &NetworkError{Op: op, Err: err}
	}
	c.observe(ctx, op, strconv.Itoa(resp.StatusCode), start, requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: data, Detail: detailOf(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, op, err)
	}
	return nil
}

func (c *Client) observe(ctx context.Context, op, status string, start time.Time, requestID string) {
	elapsed := time.Since(start)
	metrics.RecordBackendRequest(op, status, float64(elapsed.Milliseconds()))
	c.log.Debug(ctx, "backend request",
		logger.String("op", op),
		logger.String("status", status),
		logger.Duration("elapsed", elapsed),
		logger.String("request_id", requestID))
}

// detailOf extracts the "detail" field of an error body. Structured details
// are returned as their JSON text.
func detailOf(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	if string(envelope.Detail) == "null" {
		return ""
	}
	return string(envelope.Detail)
}

// IsTimeout reports whether err is a transport failure caused by a deadline.
func IsTimeout(err error) bool {
	var ne *NetworkError
	if !errors.As(err, &ne) {
		return false
	}
	if errors.Is(ne.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(ne.Err, &te) && te.Timeout()
}
