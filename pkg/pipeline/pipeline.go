// Package pipeline wires the top-articles ranking, the title filter, the
// content fetcher and the output writer into a single run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/wikitop/pkg/logging"
	"github.com/Sternrassler/wikitop/pkg/output"
	"github.com/Sternrassler/wikitop/pkg/pagination"
	"github.com/Sternrassler/wikitop/pkg/titles"
	"github.com/Sternrassler/wikitop/pkg/wiki"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pipeline runs.
var (
	titlesFilteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_titles_filtered_total",
		Help: "Total number of ranked titles rejected by the legality filter",
	})

	duplicatesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_duplicates_removed_total",
		Help: "Total number of repeated page ids dropped from results",
	})

	lastRunArticles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wikitop_last_run_articles",
		Help: "Number of articles in the last result set",
	})

	lastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wikitop_last_run_duration_seconds",
		Help: "Duration of the last run in seconds",
	})
)

// TopArticlesResolver returns the ranking for a day. *wiki.Client implements it.
type TopArticlesResolver interface {
	TopArticles(ctx context.Context, q wiki.TopQuery) ([]wiki.TopArticle, error)
}

// ContentFetcher fetches extracts for a set of titles. *pagination.ContentFetcher implements it.
type ContentFetcher interface {
	Fetch(ctx context.Context, attrs *pagination.Attributes, project string) ([]pagination.Article, error)
}

// Config holds pipeline configuration.
type Config struct {
	Project     string
	Access      string
	MaxArticles int
	// DayOffset is how many days before now the ranking is taken from.
	// Pageviews data is published with a delay of a day or more.
	DayOffset  int
	OutputPath string
	Gzip       bool
}

// DefaultConfig returns the configuration of the Hebrew Wikipedia run.
func DefaultConfig() Config {
	return Config{
		Project:     "he.wikipedia.org",
		Access:      wiki.DefaultAccess,
		MaxArticles: 1000,
		DayOffset:   2,
	}
}

// Report summarises one run.
type Report struct {
	RunID         string
	Date          time.Time
	Fetched       int
	Filtered      int
	Remaining     int
	Duplicates    int
	Articles      []pagination.Article
	OutputWritten bool
	Duration      time.Duration
}

// Pipeline runs the fetch for one day.
type Pipeline struct {
	top     TopArticlesResolver
	fetcher ContentFetcher
	config  Config
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used to pick the ranking day.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline.
func New(top TopArticlesResolver, fetcher ContentFetcher, cfg Config, opts ...Option) (*Pipeline, error) {
	if top == nil || fetcher == nil {
		return nil, fmt.Errorf("top-articles resolver and content fetcher are required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.DayOffset < 0 {
		return nil, fmt.Errorf("day offset must be >= 0 (got %d)", cfg.DayOffset)
	}
	if cfg.MaxArticles < 1 {
		return nil, fmt.Errorf("max articles must be >= 1 (got %d)", cfg.MaxArticles)
	}
	if cfg.OutputPath != "" {
		if err := output.ValidatePath(cfg.OutputPath); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		top:     top,
		fetcher: fetcher,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run resolves the ranking, fetches extracts and writes the result.
// Nothing is written when any step fails.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	logger, runID := logging.NewRunLogger("pipeline")

	report := &Report{
		RunID: runID,
		Date:  p.now().AddDate(0, 0, -p.config.DayOffset),
	}

	logger.Info().
		Str("project", p.config.Project).
		Str("date", report.Date.Format("2006-01-02")).
		Msg("Fetching data")

	top, err := p.top.TopArticles(ctx, wiki.TopQuery{
		Project:     p.config.Project,
		Access:      p.config.Access,
		Year:        report.Date.Year(),
		Month:       int(report.Date.Month()),
		Day:         wiki.DayOf(report.Date.Day()),
		MaxArticles: p.config.MaxArticles,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve top articles: %w", err)
	}
	report.Fetched = len(top)
	logger.Info().Int("articles", len(top)).Msg("Fetched top articles")

	attrs, skipped := buildAttributes(top, logger)
	report.Remaining = attrs.Len()
	report.Filtered = skipped
	logger.Info().
		Int("skipped", report.Filtered).
		Int("remaining", report.Remaining).
		Msg("Filtered titles")

	articles, err := p.fetcher.Fetch(ctx, attrs, p.config.Project)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}

	articles, report.Duplicates = dedupByPageID(articles)
	if report.Duplicates > 0 {
		duplicatesRemovedTotal.Add(float64(report.Duplicates))
		logger.Info().Int("duplicates", report.Duplicates).Msg("Removed repeated pages")
	}
	report.Articles = articles
	lastRunArticles.Set(float64(len(articles)))

	if p.config.OutputPath != "" {
		written, err := output.WriteJSON(p.config.OutputPath, articles, output.Options{Gzip: p.config.Gzip})
		if err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
		report.OutputWritten = written
		if written {
			logger.Info().
				Str("path", p.config.OutputPath).
				Int("articles", len(articles)).
				Msg("Dumped article content")
		} else {
			logger.Warn().Msg("No articles fetched, output not written")
		}
	}

	report.Duration = time.Since(start)
	lastRunDuration.Set(report.Duration.Seconds())
	logger.Info().Dur("duration", report.Duration).Msg("Done")

	return report, nil
}

// buildAttributes keeps legal titles in rank order.
func buildAttributes(top []wiki.TopArticle, logger zerolog.Logger) (*pagination.Attributes, int) {
	attrs := pagination.NewAttributes()
	skipped := 0
	for _, a := range top {
		if !titles.IsLegal(a.Title) {
			skipped++
			titlesFilteredTotal.Inc()
			logger.Info().Str("title", a.Title).Msg("Skipping title")
			continue
		}
		attrs.Add(a.Title, pagination.Attribute{Rank: a.Rank, Views: a.Views})
	}
	return attrs, skipped
}

// dedupByPageID drops later occurrences of a page id. Input is rank-sorted,
// so the best-ranked occurrence is kept.
func dedupByPageID(articles []pagination.Article) ([]pagination.Article, int) {
	seen := make(map[int64]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if _, dup := seen[a.PageID]; dup {
			continue
		}
		seen[a.PageID] = struct{}{}
		out = append(out, a)
	}
	return out, len(articles) - len(out)
}
