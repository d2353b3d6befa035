package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Observer receives one call per outbound request. status is 0 when the
// request never produced a response.
type Observer interface {
	ObserveRequest(endpoint string, status int, took time.Duration)
}

// Client holds the shared HTTP client and base URL for every FiftyOne
// endpoint.
type Client struct {
	baseURL      string
	client       *http.Client
	imageTimeout time.Duration
	maxHeight    int
	observer     Observer
	logger       *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the ambient HTTP client used for JSON calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithImageTimeout bounds every byte fetch.
func WithImageTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.imageTimeout = d
		}
	}
}

// WithMaxHeight sets the max_height hint sent with latest/random image requests.
func WithMaxHeight(h int) Option {
	return func(c *Client) {
		if h > 0 {
			c.maxHeight = h
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      baseURL,
		client:       &http.Client{Timeout: DefaultTimeout},
		imageTimeout: DefaultImageTimeout,
		maxHeight:    DefaultMaxHeight,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchJSON GETs endpoint (relative to the base URL) and decodes the body
// into dest.
func (c *Client) FetchJSON(ctx context.Context, endpoint string, query url.Values, dest any) error {
	body, err := c.do(ctx, endpoint, c.baseURL+endpoint, query, 0)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &Error{Op: "GET " + endpoint, Err: err}
	}
	return nil
}

// FetchBytes GETs rawURL and returns the raw payload. Paths starting with
// "/" are resolved against the base URL. The call is bounded by the image
// timeout.
func (c *Client) FetchBytes(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	label := rawURL
	switch {
	case strings.HasPrefix(rawURL, pathPictures+"/"):
		label = pathPictures + "/{id}"
		rawURL = c.baseURL + rawURL
	case strings.HasPrefix(rawURL, "/"):
		rawURL = c.baseURL + rawURL
	default:
		label = "external"
	}
	return c.do(ctx, label, rawURL, query, c.imageTimeout)
}

// TestConnection probes the API root. It reports false on any failure and
// never returns an error.
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.do(ctx, "/", c.baseURL+"/", nil, 0); err != nil {
		c.logger.Warn("fiftyone API unreachable", "url", c.baseURL, "error", err)
		return false
	}
	return true
}

// do is the single failure-mapping boundary: every transport error or
// non-200 status leaves as *Error. Cancellation of the caller's context is
// returned as-is.
func (c *Client) do(ctx context.Context, endpoint, rawURL string, query url.Values, timeout time.Duration) ([]byte, error) {
	op := "GET " + endpoint

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &Error{Op: op, Err: err}
	}
	return body, nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, status, time.Since(start))
	}
}
