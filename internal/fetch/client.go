package fetch

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Default transport values. Callers normally override these from the
// application config via options.
const (
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024 // 5MB
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:115.0) Gecko/20100101 Firefox/115.0"
)

// Client performs single HTTP GET requests for the crawler.
// One Client is shared by all workers of a crawl; the underlying
// http.Client pools connections across them.
type Client struct {
	// httpClient is the configured HTTP client.
	httpClient *http.Client

	// userAgent is the User-Agent header sent with every request.
	// A browser string rather than a scanner string; targets frequently
	// serve different content to obvious bots.
	userAgent string

	// headers are extra headers merged into every request.
	headers map[string]string

	// cookie is an optional Cookie header value.
	cookie string

	// maxBodySize caps how many decoded body bytes are read per response.
	// Longer bodies are truncated, not rejected.
	maxBodySize int64

	// timeout is the per-request timeout, covering the body read.
	timeout time.Duration

	// insecure disables TLS certificate verification.
	insecure bool

	// logger receives debug-level transport events.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxBodySize sets the maximum decoded response body size in bytes.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithInsecureTLS disables TLS certificate verification when enabled.
// Reconnaissance targets often present self-signed or expired certificates.
func WithInsecureTLS(insecure bool) Option {
	return func(c *Client) {
		c.insecure = insecure
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithCookie sets the Cookie header sent with every request.
// Format: "name=value" or "name1=value1; name2=value2".
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithLogger sets the logger for transport events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a fetch client.
// The zero configuration is usable: browser User-Agent, 15 second timeout,
// 5MB body cap, TLS verification on.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		timeout:     defaultTimeout,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if c.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // --insecure flag is explicit
	}

	c.httpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}

	return c
}

// Result holds one fetched response.
// Any HTTP response is a Result, including 4xx and 5xx: error pages are
// still documents worth mining for paths.
type Result struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the raw Content-Type header value.
	ContentType string

	// Body is the response body decoded to UTF-8, truncated to the
	// configured cap.
	Body string

	// Headers are the response headers.
	Headers http.Header
}

// Get fetches a single URL.
// It returns a Result for any HTTP response regardless of status code;
// an error is returned only for transport-level failures, which callers
// classify with ClassifyError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	c.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	return &Result{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Headers:     resp.Header.Clone(),
	}, nil
}

// readBody reads the response body: content-encoding decode first, then the
// size cap, then charset conversion to UTF-8.
//
// Setting Accept-Encoding by hand disables the transport's transparent gzip
// handling, so all three encodings are decoded here.
func (c *Client) readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close() //nolint:errcheck

	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close() //nolint:errcheck
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close() //nolint:errcheck
		reader = fl
	}

	limited := bufio.NewReader(io.LimitReader(reader, c.maxBodySize))

	// Peek gives DetermineEncoding its sniff window without consuming
	// the stream.
	peek, err := limited.Peek(1024)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read body: %w", err)
	}

	decoded := io.Reader(limited)
	enc, name, _ := charset.DetermineEncoding(peek, resp.Header.Get("Content-Type"))
	if name != "utf-8" {
		decoded = transform.NewReader(limited, enc.NewDecoder())
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
