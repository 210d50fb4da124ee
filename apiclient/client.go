// Package apiclient is the JSON-over-HTTPS transport shared by the auth and
// accounts clients. It builds URLs from a base URL, attaches bearer tokens,
// decodes error bodies into Error values and never retries.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	contentTypeJSON = "application/json"
	maxResponseSize = 4 << 20
	defaultTimeout  = 30 * time.Second
)

// Request describes one backend call. Op names the operation for logs and metrics.
type Request struct {
	Op     string
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	logger      zerolog.Logger
	metrics     *metrics
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
}

// WithTokenSource authorizes every request with a bearer token from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request counts and latencies on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newMetrics(reg)
		}
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.tokenSource != nil {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc := *c.httpClient
		hc.Transport = &oauth2.Transport{Source: taggedTokenSource{c.tokenSource}, Base: base}
		c.httpClient = &hc
	}
	c.logger = c.logger.With().Str("component", "apiclient").Logger()
	return c, nil
}

// Do performs req and decodes a 2xx body into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.observe(req.Op, req.Method, status, time.Since(start))
	}()

	u, err := url.Parse(c.baseURL + req.Path)
	if err != nil {
		return ErrInvalidURL
	}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return errors.Wrapf(err, "[Client.Do] encode %s body", req.Op)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return stderrors.Join(ErrInvalidURL, err)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var tokenErr *TokenError
		if errors.As(err, &tokenErr) {
			c.logger.Debug().Str("op", req.Op).Err(tokenErr.Err).Msg("no access token for request")
			return tokenErr
		}
		c.logger.Debug().Str("op", req.Op).Err(err).Msg("request failed")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Err: err}
	}

	c.logger.Debug().
		Str("op", req.Op).
		Str("method", req.Method).
		Str("path", u.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeErrorResponse(resp.StatusCode, data)
		c.logger.Warn().Str("op", req.Op).Int("status", resp.StatusCode).Err(apiErr).Msg("api error response")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &DecodeError{Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// taggedTokenSource marks token failures so Do can tell them apart from network errors.
type taggedTokenSource struct {
	src oauth2.TokenSource
}

func (t taggedTokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.src.Token()
	if err != nil {
		return nil, &TokenError{Err: err}
	}
	return tok, nil
}
