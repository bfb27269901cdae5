// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/eodlake/internal/common"
	"github.com/bobmcallan/eodlake/internal/interfaces"
	"github.com/bobmcallan/eodlake/internal/models"
	"github.com/bobmcallan/eodlake/internal/table"
)

const (
	DefaultBaseURL = "https://eodhd.com/api"
	DefaultTimeout = 30 * time.Second

	EndpointEOD          = "eod"
	EndpointFundamentals = "fundamentals"
)

// Client implements the EODHDClient interface
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit throttles outgoing requests. Zero or less leaves requests unthrottled.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the timeout of sessions the client creates itself
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient supplies a session reused by every call
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock overrides the source of "today" used for default date bounds
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new EODHD client. An empty apiKey falls back to the demo token.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	if apiKey == "" {
		apiKey = common.DemoAPIToken
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// initSession returns the supplied session, or a fresh default one for this call.
func (c *Client) initSession() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: c.timeout}
}

// preparedRequest holds the real request URL and its redacted twin. Only the
// redacted form may be logged or put into errors.
type preparedRequest struct {
	url      string
	redacted string
}

func (c *Client) prepare(req models.FetchRequest, defaultEndpoint string, params url.Values) (*preparedRequest, error) {
	if strings.TrimSpace(req.Symbol) == "" || strings.TrimSpace(req.Exchange) == "" {
		return nil, fmt.Errorf("%w: symbol and exchange are required", ErrInvalidRequest)
	}
	endpoint := strings.Trim(req.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	token := req.APIToken
	if token == "" {
		token = c.apiKey
	}

	if params == nil {
		params = url.Values{}
	}
	redactedParams := url.Values{}
	for k, v := range params {
		redactedParams[k] = append([]string(nil), v...)
	}
	params.Set("api_token", token)
	redactedParams.Set("api_token", TokenPlaceholder)

	path := fmt.Sprintf("%s/%s/%s", c.baseURL, endpoint, url.PathEscape(req.Ticker()))
	return &preparedRequest{
		url:      path + "?" + params.Encode(),
		redacted: path + "?" + redactedParams.Encode(),
	}, nil
}

// get performs one GET and returns the body of a 200 response
func (c *Client) get(ctx context.Context, pr *preparedRequest) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pr.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pr.redacted, unwrapURLError(err))
	}

	c.logger.Debug().Str("url", pr.redacted).Msg("EODHD API request")

	resp, err := c.initSession().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request %s: %w", pr.redacted, unwrapURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &RemoteDataError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			URL:        pr.redacted,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", pr.redacted, err)
	}
	return body, nil
}

// FetchEOD retrieves end-of-day data for req as a table indexed by date.
// The provider's trailing footer line is discarded and row order is preserved.
func (c *Client) FetchEOD(ctx context.Context, req models.FetchRequest) (*table.Table, error) {
	from, to, err := SanitizeDates(req.Start, req.End, c.now())
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("from", from.Format(models.DateLayout))
	params.Set("to", to.Format(models.DateLayout))

	pr, err := c.prepare(req, EndpointEOD, params)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, pr)
	if err != nil {
		return nil, err
	}

	t, err := table.ParseProviderCSV(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EOD response for %s: %w", req.Ticker(), err)
	}

	c.logger.Debug().
		Str("ticker", req.Ticker()).
		Int("rows", t.Len()).
		Msg("EODHD EOD data received")

	return t, nil
}

// FetchFundamentals retrieves the fundamentals payload for req verbatim.
// Non-200 responses fail with a RemoteDataError, the same as FetchEOD.
func (c *Client) FetchFundamentals(ctx context.Context, req models.FetchRequest) ([]byte, error) {
	pr, err := c.prepare(req, EndpointFundamentals, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, pr)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("ticker", req.Ticker()).
		Int("bytes", len(body)).
		Msg("EODHD fundamentals received")

	return body, nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// unwrapURLError drops the *url.Error wrapper, whose message embeds the full
// request URL including the token.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// Ensure Client implements EODHDClient
var _ interfaces.EODHDClient = (*Client)(nil)
