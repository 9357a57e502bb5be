// Package wiki talks to the two Wikimedia endpoints the tool needs: the
// pageviews "top" ranking and the MediaWiki extracts query.
package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/wikitop/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMetricsBaseURL is the pageviews top-articles REST endpoint.
const DefaultMetricsBaseURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/top"

// Getter is the gateway the wiki client issues its requests through.
// *client.Client satisfies it.
type Getter interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error
}

// Client resolves top articles and queries extracts.
type Client struct {
	gateway        Getter
	metricsBaseURL string
	// contentBaseURL replaces https://{project} when set.
	contentBaseURL string
	now            func() time.Time
	logger         zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetricsBaseURL overrides the pageviews top endpoint.
func WithMetricsBaseURL(base string) Option {
	return func(c *Client) { c.metricsBaseURL = strings.TrimRight(base, "/") }
}

// WithContentBaseURL sends extracts queries to base instead of https://{project}.
func WithContentBaseURL(base string) Option {
	return func(c *Client) { c.contentBaseURL = strings.TrimRight(base, "/") }
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a wiki client on top of gateway.
func NewClient(gateway Getter, opts ...Option) *Client {
	c := &Client{
		gateway:        gateway,
		metricsBaseURL: DefaultMetricsBaseURL,
		now:            time.Now,
		logger:         log.With().Str("component", "wiki-client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// contentURL returns the api.php URL for project.
func (c *Client) contentURL(project string) string {
	if c.contentBaseURL != "" {
		return c.contentBaseURL + "/w/api.php"
	}
	return fmt.Sprintf("https://%s/w/api.php", project)
}

// malformed wraps a shape problem as client.ErrMalformedResponse.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", client.ErrMalformedResponse, fmt.Sprintf(format, args...))
}
