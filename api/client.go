// ABOUTME: HTTP transport helper for the CRM REST API
// ABOUTME: Adds JSON, bearer token and organization headers to every request
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint paths relative to the API prefix.
const (
	ProfilePath        = "/profile"
	LoginPath          = "/auth/login/"
	RegisterPath       = "/auth/register/"
	GoogleAuthPath     = "/auth/google"
	CheckUserCountPath = "/auth/user-count/"
)

// Credentials supplies the stored token and organization id.
type Credentials interface {
	Token() string
	Org() string
}

// Client talks to one CRM server.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "api").Logger() }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a client for baseURL, which includes the API prefix
// (for example "http://localhost:8000/api").
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

// authLevel selects which credential headers a request carries.
type authLevel int

const (
	public authLevel = iota
	tokenOnly
	orgScoped
)

// do sends one request. A transport error comes back as *TransientNetworkFailure;
// context cancellation is returned unwrapped.
func (c *Client) do(ctx context.Context, method, path string, payload any, auth authLevel) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if auth != public {
		if c.creds == nil || c.creds.Token() == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", c.creds.Token())
	}
	if auth == orgScoped {
		if c.creds.Org() == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("org", c.creds.Org())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &TransientNetworkFailure{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientNetworkFailure{Op: method + " " + path, Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	return &response{status: resp.StatusCode, body: data}, nil
}

// errorEnvelope is the server's write error shape.
type errorEnvelope struct {
	Error   json.RawMessage     `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// flagged reports whether the payload marks itself as an error.
func (e errorEnvelope) flagged() bool {
	raw := strings.TrimSpace(string(e.Error))
	switch raw {
	case "", "null", "false", `""`:
		return len(e.Errors) > 0
	}
	return true
}

func (e errorEnvelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
		return s
	}
	return "request rejected"
}

// writeResult maps a write response onto the error taxonomy.
func writeResult(resp *response) error {
	var env errorEnvelope
	_ = json.Unmarshal(resp.body, &env)

	if resp.ok() && !env.flagged() {
		return nil
	}

	msg := env.message()
	if !resp.ok() && msg == "request rejected" {
		msg = http.StatusText(resp.status)
	}
	return &ValidationFailure{Status: resp.status, Message: msg, Fields: env.Errors}
}
