package wiki

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Defaults for top-articles queries.
const (
	DefaultAccess = "all-access"
	DefaultDay    = "all-days"

	// defaultLookback is used when no year/month is given.
	defaultLookback = 30 * 24 * time.Hour
)

// TopQuery selects a ranking from the pageviews top endpoint.
type TopQuery struct {
	// Project is the wiki host, e.g. "he.wikipedia.org".
	Project string
	// Access tier: all-access, desktop, mobile-app or mobile-web.
	Access string
	// Year and Month both default to 30 days ago when either is zero.
	Year  int
	Month int
	// Day is a day of month or "all-days" for the monthly ranking.
	Day string
	// MaxArticles truncates the ranking; zero or less keeps everything.
	MaxArticles int
}

// DayOf formats a day of month for TopQuery.Day.
func DayOf(day int) string {
	return fmt.Sprintf("%02d", day)
}

// TopArticle is one entry of the ranking.
type TopArticle struct {
	Title string `json:"article"`
	Views int64  `json:"views"`
	Rank  int    `json:"rank"`
}

type topResponse struct {
	Items []struct {
		Articles *[]TopArticle `json:"articles"`
	} `json:"items"`
}

// topURL builds the ranking URL, filling defaults.
func (c *Client) topURL(q TopQuery) string {
	year, month := q.Year, q.Month
	if year == 0 || month == 0 {
		lastMonth := c.now().Add(-defaultLookback)
		year, month = lastMonth.Year(), int(lastMonth.Month())
	}

	access := q.Access
	if access == "" {
		access = DefaultAccess
	}

	day := q.Day
	if day == "" {
		day = DefaultDay
	}
	if n, err := strconv.Atoi(day); err == nil && n >= 0 {
		day = DayOf(n)
	}

	return fmt.Sprintf("%s/%s/%s/%d/%02d/%s", c.metricsBaseURL, q.Project, access, year, month, day)
}

// TopArticles fetches the most-viewed articles for q with a single request.
func (c *Client) TopArticles(ctx context.Context, q TopQuery) ([]TopArticle, error) {
	if q.Project == "" {
		return nil, fmt.Errorf("project is required")
	}

	topURL := c.topURL(q)
	c.logger.Info().Str("url", topURL).Msg("Fetching top articles")

	var resp topResponse
	if err := c.gateway.GetJSON(ctx, topURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("top articles: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, malformed("top articles response has no items")
	}
	if resp.Items[0].Articles == nil {
		return nil, malformed("top articles response has no articles")
	}

	articles := *resp.Items[0].Articles
	if q.MaxArticles > 0 && len(articles) > q.MaxArticles {
		articles = articles[:q.MaxArticles]
	}

	top := make([]TopArticle, len(articles))
	copy(top, articles)

	c.logger.Info().
		Str("project", q.Project).
		Int("articles", len(top)).
		Msg("Fetched top articles")

	return top, nil
}
