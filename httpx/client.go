// Package httpx wraps net/http with the request conventions the upstream video
// services expect: a browser-like user-agent, bounded timeouts and automatic
// redirect following. A single Client is constructed once and shared by every
// component that talks to the network.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
)

// DefaultUserAgent is sent on every request. The upstream services refuse or
// degrade requests without a browser-like user-agent, so this is a protocol
// requirement rather than a preference.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

const DefaultTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client, e.g. with one produced by
// httptest in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New constructs a Client with the default timeout, redirect following and
// user-agent. The zero-config result is safe for concurrent use.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the request, filling in the user-agent header if the caller didn't
// set one.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Get executes a GET request and returns the response body. Callers own closing
// the body. Non-2xx responses are an error.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	mergeHeader(req, header)
	return c.checked(c.Do(req))
}

// GetString fetches a URL and returns the whole response body as a string.
func (c *Client) GetString(ctx context.Context, url string, header http.Header) (string, error) {
	resp, err := c.Get(ctx, url, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// GetJSON fetches a URL and parses the response body as schemaless JSON.
func (c *Client) GetJSON(ctx context.Context, url string) (*simplejson.Json, error) {
	body, err := c.GetString(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	js, err := simplejson.NewJson([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return js, nil
}

// PostForm sends an application/x-www-form-urlencoded POST and returns the
// response body as a string. Extra headers are merged into the request.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values, header http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	mergeHeader(req, header)
	resp, err := c.checked(c.Do(req))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// PostFormJSON is PostForm with the response parsed as schemaless JSON.
func (c *Client) PostFormJSON(ctx context.Context, url string, form url.Values, header http.Header) (*simplejson.Json, error) {
	body, err := c.PostForm(ctx, url, form, header)
	if err != nil {
		return nil, err
	}
	js, err := simplejson.NewJson([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return js, nil
}

// ExpandURL follows redirects to turn a short link into its canonical form. Any
// transport failure returns the original URL unchanged; resolution continues
// with the unexpanded form rather than aborting.
func (c *Client) ExpandURL(ctx context.Context, shortURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return shortURL
	}
	resp, err := c.Do(req)
	if err != nil {
		return shortURL
	}
	defer resp.Body.Close()
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return shortURL
}

func (c *Client) checked(resp *http.Response, err error) (*http.Response, error) {
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

func mergeHeader(req *http.Request, header http.Header) {
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
}
