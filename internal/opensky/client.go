package opensky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/saviobatista/skywatch/internal/types"
)

const (
	// DefaultBaseURL is the public OpenSky state vector endpoint.
	DefaultBaseURL = "https://opensky-network.org/api/states/all"

	// DefaultTimeout bounds one fetch; a slow provider is a recoverable
	// failure, retried on the next scheduled cycle.
	DefaultTimeout = 15 * time.Second
)

// Client fetches raw state data from the OpenSky Network API. It performs no
// retries of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (useful for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an OpenSky API client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchStates retrieves the raw state payload, optionally restricted to a
// bounding box. HTTP 429 surfaces as ErrRateLimited, deadline expiry as
// ErrTimeout and transport failures as ErrUnavailable; all are recoverable.
func (c *Client) FetchStates(ctx context.Context, box *types.BoundingBox) (json.RawMessage, error) {
	reqURL := c.baseURL
	if box != nil {
		params := url.Values{}
		params.Set("lamin", formatCoord(box.MinLat))
		params.Set("lamax", formatCoord(box.MaxLat))
		params.Set("lomin", formatCoord(box.MinLon))
		params.Set("lomax", formatCoord(box.MaxLon))
		reqURL = fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "error closing response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, types.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", types.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", types.ErrUnavailable, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: provider returned invalid JSON", types.ErrCorruptData)
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
