// Package client provides the HTTP gateway used for every Wikimedia API call.
// It attaches a fixed User-Agent, paces requests and turns any non-2xx
// status into a RemoteRequestError. Requests are never retried.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/wikitop/pkg/ratelimit"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for gateway operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikitop_requests_total",
		Help: "Total Wikimedia API requests by host and status",
	}, []string{"host", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikitop_request_duration_seconds",
		Help:    "Wikimedia API request duration in seconds by host",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	requestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikitop_request_errors_total",
		Help: "Total failed Wikimedia API requests by error class",
	}, []string{"class"})
)

// DefaultUserAgent is a desktop browser identity.
// Some Wikimedia edge caches answer 403 to requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.0.0 Safari/537.36"

// Config holds the gateway configuration.
type Config struct {
	// User-Agent header sent with every request
	UserAgent string

	// Timeout per request. Zero leaves the transport default (no timeout).
	Timeout time.Duration

	// Request pacing. RequestsPerSecond <= 0 disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:         DefaultUserAgent,
		Timeout:           0,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		Burst:             1,
	}
}

// Client is the HTTP fetch gateway.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	config  Config
	logger  zerolog.Logger
}

// New creates a new gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	logger := log.With().Str("component", "wiki-gateway").Logger()

	httpClient := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:    httpClient,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Burst, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Get issues a GET request for rawURL with the given query parameters and
// returns the response body. Any non-2xx status yields *RemoteRequestError.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	host := hostOf(rawURL)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(host).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("url", rawURL).
		Int("params", len(params)).
		Msg("Executing request")

	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		requestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(host, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", rawURL).Msg("HTTP request failed")

		// Cancellation is the caller's doing; keep it recognisable.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctxErr)
		}
		return nil, &RemoteRequestError{URL: rawURL, Err: err}
	}

	status := resp.StatusCode()
	requestsTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()

	if !resp.IsSuccess() {
		reqErr := &RemoteRequestError{
			URL:        rawURL,
			StatusCode: status,
			Status:     resp.Status(),
		}
		requestErrorsTotal.WithLabelValues(string(reqErr.Class())).Inc()
		c.logger.Warn().
			Str("url", rawURL).
			Int("status", status).
			Str("error_class", string(reqErr.Class())).
			Msg("Wikimedia request error")
		return nil, reqErr
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("status", status).
		Int("bytes", len(resp.Body())).
		Dur("duration", time.Since(startTime)).
		Msg("Request complete")

	return resp.Body(), nil
}

// GetJSON performs Get and decodes the JSON body into v.
// A body that is not valid JSON for v yields ErrMalformedResponse.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	body, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return malformed("decode %s: %v", rawURL, err)
	}
	return nil
}

// UserAgent returns the User-Agent header sent with every request.
func (c *Client) UserAgent() string {
	return c.config.UserAgent
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
