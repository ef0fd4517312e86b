// Package httpclient wraps net/http with the relay's upstream-call
// conventions: per-account base URL and headers, optional per-account HTTP
// proxy, and JSON or streaming response handling.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultHTTPClient is a shared HTTP client with sensible defaults for
// short-lived, non-streaming calls (e.g. translation requests).
var DefaultHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Client wraps an HTTP client scoped to a single upstream base URL.
type Client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Headers map[string]string
	Timeout time.Duration

	// ProxyURL, if set, routes every request through this HTTP/HTTPS proxy.
	ProxyURL string

	// HTTPClient overrides the underlying client entirely. If set, Timeout
	// and ProxyURL are ignored.
	HTTPClient *http.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	client := cfg.HTTPClient
	if client == nil {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		if cfg.ProxyURL != "" {
			proxy, err := url.Parse(cfg.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parsing proxy url: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxy)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout, Transport: transport}
	}

	return &Client{
		client:  client,
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
	}, nil
}

// Request describes a single call against the client's base URL.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    interface{}
}

// Response is a fully-buffered HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// Do performs req and buffers the full response body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// DoJSON performs req and decodes a 2xx response body into result.
func (c *Client) DoJSON(ctx context.Context, req Request, result interface{}) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return resp, fmt.Errorf("decoding JSON response: %w", err)
	}
	return resp, nil
}

// DoStream performs req and returns the live *http.Response for the caller
// to read incrementally and close. Unlike Do, the body is not buffered:
// this is the entry point the relay core uses for streaming upstream calls.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.client.Do(httpReq)
}
