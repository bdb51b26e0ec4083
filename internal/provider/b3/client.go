package b3

import (
	"net/http"
	"time"

	"ibovselic/internal/httpx"
)

const (
	// DefaultBaseURL is the scheme and host of the B3 listing services.
	DefaultBaseURL = "https://sistemaswebb3-listados.b3.com.br"

	route = "indexStatisticsProxy/IndexCall/GetMonthlyEvolution"

	// RequestTimeout bounds every round trip to B3.
	RequestTimeout = 15 * time.Second
)

// Client fetches the monthly IBOVESPA evolution from the B3 index statistics proxy.
type Client struct {
	// baseURL is the scheme and host of the B3 listing services.
	baseURL string
	// httpClient performs the round trips.
	httpClient httpx.HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// Option is a configuration option for the B3 client.
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

// New creates a B3 client. Without WithHTTPClient it uses an httpx.Client
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

func (c *Client) Name() string { return "B3 IBOVESPA" }
