// Package gateway is the HTTP client of the complaint desk backend. It is
// stateless: the bearer token is read from a TokenSource on every request
// and every failure is translated into an *apperr.Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies the stored credentials at send time.
type TokenSource interface {
	Token(ctx context.Context) (string, bool, error)
	RefreshToken(ctx context.Context) (string, bool, error)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the scheme and host of the backend, e.g. http://localhost:8080.
	BaseURL string
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
	// Tokens is consulted for the bearer token. May be nil.
	Tokens TokenSource
	// Retries is the number of extra attempts after a network failure.
	Retries int
	// RetryInterval is the first backoff interval. Defaults to 200ms.
	RetryInterval time.Duration
	Log           *zap.Logger
}

// Client talks to the backend.
type Client struct {
	baseURL       string
	http          *http.Client
	tokens        TokenSource
	retries       int
	retryInterval time.Duration
	log           *zap.Logger
}

// New creates a Client from opts.
func New(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		http:          opts.HTTPClient,
		tokens:        opts.Tokens,
		retries:       opts.Retries,
		retryInterval: opts.RetryInterval,
		log:           opts.Log,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.retryInterval <= 0 {
		c.retryInterval = 200 * time.Millisecond
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// call describes one endpoint invocation.
type call struct {
	method string
	path   string
	body   any
	// fallback is the code used for rejections without a dedicated status.
	fallback apperr.Code
	// noAuth skips the bearer header.
	noAuth bool
}

// response is a decoded 2xx answer.
type response struct {
	status int
	env    models.Envelope
	body   []byte
}

// data decodes the envelope data into out. Bodies without an envelope are
// decoded as a whole.
func (r *response) data(out any) error {
	if out == nil {
		return nil
	}
	raw := r.body
	if len(r.env.Data) > 0 && string(r.env.Data) != "null" {
		raw = r.env.Data
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Network(fmt.Errorf("decode response data: %w", err))
	}
	return nil
}

// do sends c with retries on network failures only.
func (c *Client) do(ctx context.Context, cl call) (*response, error) {
	var resp *response
	attempt := 0
	op := func() error {
		attempt++
		r, err := c.send(ctx, cl)
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) && ae.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.log.Warn("request failed, retrying",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.Network(err)
		}
		return nil, err
	}
	return resp, nil
}

// send performs a single attempt.
func (c *Client) send(ctx context.Context, cl call) (*response, error) {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, apperr.Network(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	if !cl.noAuth && c.tokens != nil {
		token, ok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		if ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Network(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("read response: %w", err))
	}

	c.log.Debug("request completed",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.String("request_id", reqID),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	r := &response{status: res.StatusCode, body: raw}
	decodeErr := decodeEnvelope(raw, &r.env)

	status := res.StatusCode
	if status >= 200 && status < 300 && r.env.Status >= 400 {
		status = r.env.Status
	}
	if status < 200 || status >= 300 {
		return nil, classify(status, cl.fallback, r.env)
	}
	if decodeErr != nil {
		// The server accepted the request; sending it again could apply it twice.
		return nil, backoff.Permanent(apperr.Network(fmt.Errorf("decode response: %w", decodeErr)))
	}
	return r, nil
}

func decodeEnvelope(raw []byte, env *models.Envelope) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, env)
}

// classify maps a rejected response to the error taxonomy.
func classify(status int, fallback apperr.Code, env models.Envelope) error {
	msg := env.Message
	if msg == "" {
		msg = env.Detail
	}

	switch {
	case status == http.StatusUnauthorized:
		return apperr.Auth(apperr.CodeUnauthorized, status, orDefault(msg, "Session expired, please log in again"))
	case status == http.StatusNotFound:
		return apperr.Auth(apperr.CodeNotFound, status, orDefault(msg, "Not found"))
	case status == http.StatusGone:
		return apperr.Auth(apperr.CodeExpired, status, orDefault(msg, "The code has expired, request a new one"))
	case status >= 500:
		return &apperr.Error{
			Kind:    apperr.KindNetwork,
			Status:  status,
			Message: orDefault(msg, "Server unavailable, please try again"),
		}
	}
	return apperr.Auth(fallback, status, orDefault(msg, fallbackMessage(fallback)))
}

func fallbackMessage(code apperr.Code) string {
	switch code {
	case apperr.CodeInvalidCredentials:
		return "Invalid staff ID or password"
	case apperr.CodeInvalidOTP:
		return "Invalid code"
	case apperr.CodeExpired:
		return "Session expired, please log in again"
	case apperr.CodeNotFound:
		return "Staff ID not found"
	default:
		return "Request was rejected"
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
