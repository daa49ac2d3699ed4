// Package wiki talks to the Confluence content REST API with one
// authenticated session.
package wiki

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foomo/contentexport/scrape"
	"go.uber.org/zap"
)

const (
	DefaultPageLimit      = 25
	DefaultRequestTimeout = 180 * time.Second
)

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("decode response")

// StatusError is returned for non 2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request to %s failed with status: %d", e.URL, e.StatusCode)
}

func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL            string
	Username           string
	Password           string
	PageLimit          int
	Timeout            time.Duration
	InsecureSkipVerify bool
	RootPagesOnly      bool
}

// Client holds the credentials and the shared connection pool. It is safe for
// sequential reuse and never mutated after NewClient.
type Client struct {
	base       *url.URL
	baseURL    string
	httpClient *http.Client
	pageLimit  int
	rootOnly   bool
	logger     *zap.Logger
}

type basicAuthTransport struct {
	username, password string
	next               http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(req)
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", cfg.BaseURL)
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		base:    base,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &basicAuthTransport{
				username: cfg.Username,
				password: cfg.Password,
				next:     transport,
			},
		},
		pageLimit: cfg.PageLimit,
		rootOnly:  cfg.RootPagesOnly,
		logger:    logger,
	}, nil
}

// BaseURL returns the service base url without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Origin returns scheme://host[:port] of the base url, dropping any sub path.
func (c *Client) Origin() string {
	return c.base.Scheme + "://" + c.base.Host
}

// Get issues an authenticated GET and returns the response for 2xx status
// codes. The caller closes the body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, header http.Header) (*http.Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2000))
		c.logger.Debug("unexpected status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// GetHTML fetches and parses a page. It also returns the final url after
// redirects.
func (c *Client) GetHTML(ctx context.Context, rawURL string, params url.Values, header http.Header) (*scrape.Document, string, error) {
	resp, err := c.Get(ctx, rawURL, params, header)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	doc, err := scrape.Parse(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return doc, resp.Request.URL.String(), nil
}

func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, header http.Header, v any) error {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	resp, err := c.Get(ctx, rawURL, params, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, rawURL, err)
	}
	return nil
}

// GetText returns the trimmed body of a plain text response.
func (c *Client) GetText(ctx context.Context, rawURL string, header http.Header) (string, error) {
	resp, err := c.Get(ctx, rawURL, nil, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return strings.TrimSpace(string(body)), nil
}
