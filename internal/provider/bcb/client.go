package bcb

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ibovselic/internal/httpx"
	"ibovselic/internal/provider"
)

// Well-known SGS series for the SELIC rate.
const (
	// SeriesSelicMonthly is the SELIC rate accumulated within the month, in percent per month.
	SeriesSelicMonthly = 4390
	// SeriesSelicTargetDaily is the COPOM target, in percent per year, one entry per day.
	SeriesSelicTargetDaily = 432
	// SeriesSelicTargetMonthly is the target accumulated within the month, in percent per year.
	SeriesSelicTargetMonthly = 4392
)

const (
	// DefaultBaseURL is the host of the SGS API.
	DefaultBaseURL = "https://api.bcb.gov.br"

	// RequestTimeout bounds every round trip to the SGS API.
	RequestTimeout = 20 * time.Second
)

// Series describes an SGS series identifier.
type Series struct {
	Code        int
	Description string
}

// KnownSeries lists the predefined SELIC series. Any other SGS code is
// accepted by FetchSeries as is.
func KnownSeries() []Series {
	return []Series{
		{Code: SeriesSelicMonthly, Description: "SELIC accumulated in the month (% p.m.)"},
		{Code: SeriesSelicTargetDaily, Description: "SELIC target defined by COPOM, daily (% p.a.)"},
		{Code: SeriesSelicTargetMonthly, Description: "SELIC target accumulated in the month, annualized (% p.a.)"},
	}
}

// Client is a client for the Banco Central SGS time series API.
type Client struct {
	baseURL    string
	httpClient httpx.HTTPClient
	header     http.Header
}

// Option is a configuration option for the SGS client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates an SGS client. Without WithHTTPClient it uses an httpx.Client
// bounded by RequestTimeout.
func New(options ...Option) *Client {
	var client = &Client{
		baseURL:    DefaultBaseURL,
		httpClient: httpx.New(RequestTimeout),
		header:     http.Header{},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Series binds the client to one SGS series code.
func (c *Client) Series(code int) provider.Provider {
	return &seriesProvider{client: c, code: code}
}

type seriesProvider struct {
	client *Client
	code   int
}

func (p *seriesProvider) Name() string { return fmt.Sprintf("BCB SGS %d", p.code) }

func (p *seriesProvider) Fetch(ctx context.Context, startYear, endYear int) ([]provider.Record, error) {
	return p.client.FetchSeries(ctx, p.code, startYear, endYear)
}
