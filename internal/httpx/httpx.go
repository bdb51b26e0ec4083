package httpx

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UserAgent is sent on every request that does not set its own.
const UserAgent = "ibovselic/1.0"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=httpxtest -destination=httpxtest/mock_http_client.go -source=httpx.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// Logger receives one debug line per round trip. Nil disables it.
	Logger *zap.Logger
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: UserAgent}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if c.Logger != nil {
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			c.Logger.Debug("http request failed", append(fields, zap.Error(err))...)
		} else {
			c.Logger.Debug("http request", append(fields, zap.Int("status", resp.StatusCode))...)
		}
	}
	return resp, err
}
