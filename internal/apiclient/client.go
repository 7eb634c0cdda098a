// Package apiclient is the JSON-over-HTTP transport to the library backend.
//
// Every response is expected to be wrapped in the uniform envelope
// {data, message, status, success}. Non-2xx statuses and success=false are
// returned as *errs.APIError; responses that do not match the envelope are
// errs.ErrMalformed; unreachable backends are errs.ErrTransport.
package apiclient

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

	"github.com/and161185/libdesk/internal/errs"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-call correlation id.
const RequestIDHeader = "X-Request-ID"

const maxBody = 8 << 20

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
	// OnUnauthorized runs after any 401 on an authenticated call. Nil disables it.
	OnUnauthorized func(ctx context.Context)
}

// Client performs envelope-aware backend calls.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	log            *zap.Logger
	onUnauthorized func(ctx context.Context)
}

// New creates a client. No timeout is set on the default HTTP client; callers
// bound calls with their context.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("apiclient: bad base URL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:     hc,
		tokens:         cfg.Tokens,
		log:            log,
		onUnauthorized: cfg.OnUnauthorized,
	}, nil
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Auth   bool // attach the bearer token
}

// Response is a successfully decoded envelope.
type Response struct {
	Status  int
	Message string
	Data    json.RawMessage
}

// Decode unmarshals the envelope data into dst.
func (r *Response) Decode(dst any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return fmt.Errorf("%w: empty data", errs.ErrMalformed)
	}
	if err := json.Unmarshal(r.Data, dst); err != nil {
		return fmt.Errorf("%w: decode data: %v", errs.ErrMalformed, err)
	}
	return nil
}

// Do executes req and returns the decoded envelope.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	rid, _ := uuid.NewV4()
	hreq.Header.Set(RequestIDHeader, rid.String())

	if req.Auth {
		if c.tokens == nil {
			return nil, errs.ErrNoSession
		}
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debug("api transport error",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", rid.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errs.ErrTransport, err)
	}

	c.log.Debug("api",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", rid.String()),
	)

	out, err := parseEnvelope(resp.StatusCode, raw)
	if err != nil && req.Auth && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
	return out, err
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, q url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: q, Auth: true})
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, q url.Values, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: q, Body: body, Auth: true})
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Auth: true})
}
