package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.warframe.market/v1"

// DefaultTimeout bounds each request from send to fully-read body.
const DefaultTimeout = 15 * time.Second

// Client performs the raw catalog and order-book retrievals. It is a
// pure I/O boundary: no caching, no rate limiting, no retries — that
// discipline is layered on by the engine.
type Client struct {
	baseURL  string
	platform Platform
	lang     string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client scoped to one platform/language pair. The
// API selects the platform and the order locale via request headers.
func NewClient(platform Platform, lang string, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		platform: platform,
		lang:     lang,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the API's standard response wrapper. Errors are reported
// in-band alongside a 200 in some failure modes, so both fields are
// inspected on every response.
type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Error   json.RawMessage `json:"error"`
}

// FetchCatalog retrieves the full list of known tradeable items for the
// client's platform/language pair, sorted by display name using the
// configured language's collation.
func (c *Client) FetchCatalog(ctx context.Context) ([]Item, error) {
	payload, err := c.getJSON(ctx, "/items")
	if err != nil {
		return nil, err
	}

	var body struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: decoding items payload: %v", ErrMalformed, err)
	}

	col := collate.New(language.Make(c.lang))
	sort.SliceStable(body.Items, func(i, j int) bool {
		return col.CompareString(body.Items[i].Name, body.Items[j].Name) < 0
	})

	return body.Items, nil
}

// FetchOrders retrieves the current open order book for one item,
// identified by its URL name, in arrival order.
func (c *Client) FetchOrders(ctx context.Context, urlName string) ([]Order, error) {
	payload, err := c.getJSON(ctx, "/items/"+url.PathEscape(urlName)+"/orders")
	if err != nil {
		return nil, err
	}

	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: decoding orders payload: %v", ErrMalformed, err)
	}

	return body.Orders, nil
}

// getJSON performs one GET and returns the decoded envelope payload.
// Transport failures are classified into the package error kinds.
func (c *Client) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrNetwork, err)
	}
	req.Header.Set("Platform", string(c.platform))
	req.Header.Set("Language", c.lang)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if msg, ok := apiErrorMessage(env.Error); ok {
		return nil, &APIError{Message: msg}
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformed)
	}

	return env.Payload, nil
}

// classifyTransportError maps transport-level errors to ErrTimeout or
// ErrNetwork while preserving the cause in the message.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// apiErrorMessage extracts an in-band API error, if present. The field
// may be absent, null, a plain string, or a structured object.
func apiErrorMessage(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return trimmed, true
}
