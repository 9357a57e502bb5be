package pagination

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for content fetching.
var (
	chunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_chunks_total",
		Help: "Total number of title chunks processed",
	})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_pages_fetched_total",
		Help: "Total number of extract query responses processed, including continuations",
	})

	pagesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikitop_pages_skipped_total",
		Help: "Total number of returned pages dropped by reason",
	}, []string{"reason"})

	articlesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_articles_collected_total",
		Help: "Total number of articles collected with extract and attributes",
	})
)

// ErrPaginationOverflow is returned when a chunk needs more continuation rounds
// than Config.MaxPagesPerChunk allows.
var ErrPaginationOverflow = errors.New("attempt to retrieve all articles exceeded limit")

// Skip reasons reported in wikitop_pages_skipped_total.
const (
	skipUnknownTitle = "unknown_title"
	skipNoExtract    = "no_extract"
)

// Config holds content fetcher configuration.
type Config struct {
	// ChunkSize is the number of titles per query. The extracts endpoint accepts at most 50.
	ChunkSize int
	// MaxPagesPerChunk bounds the continuation rounds of a single chunk.
	MaxPagesPerChunk int
}

// DefaultConfig returns the default configuration for the extracts endpoint.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        50,
		MaxPagesPerChunk: 50,
	}
}

// Normalization is one server-side title rewrite reported by the API.
type Normalization struct {
	From string
	To   string
}

// PageEntry is one page entry of an extracts response.
// Extract is nil when the server deferred the extract to a later continuation
// or the page does not exist.
type PageEntry struct {
	Title   string
	PageID  int64
	Extract *string
}

// Page is a single extracts query response.
type Page struct {
	Normalized []Normalization
	Pages      []PageEntry
	// Continue is the excontinue token; empty when the chunk is complete.
	Continue string
}

// PageSource is the interface the wiki client implements for single-page fetching.
type PageSource interface {
	// QueryExtracts fetches one page of extracts for titles, resuming at continuation when non-empty.
	QueryExtracts(ctx context.Context, project string, titles []string, continuation string) (*Page, error)
}

// Article is a fetched extract merged with its ranking attributes.
type Article struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	PageID  int64  `json:"pageid"`
	Views   int64  `json:"views"`
	Rank    int    `json:"rank"`
}

// ContentFetcher drives the chunked, continuation-paginated extracts query.
type ContentFetcher struct {
	source PageSource
	config Config
	logger zerolog.Logger
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(source PageSource, config Config) *ContentFetcher {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 50
	}
	if config.MaxPagesPerChunk <= 0 {
		config.MaxPagesPerChunk = config.ChunkSize
	}

	return &ContentFetcher{
		source: source,
		config: config,
		logger: log.With().Str("component", "content-fetcher").Logger(),
	}
}

// runState is owned by a single Fetch call.
type runState struct {
	attrs *Attributes
	// normalized maps canonical server titles back to request titles.
	normalized map[string]string
	articles   []Article
	pages      int
}

func newRunState(attrs *Attributes) *runState {
	return &runState{
		attrs:      attrs,
		normalized: make(map[string]string),
		articles:   make([]Article, 0, attrs.Len()),
	}
}

// resolve maps a server title to the caller's title.
func (s *runState) resolve(title string) string {
	if original, ok := s.normalized[title]; ok {
		return original
	}
	return title
}

// merge folds one response into the run state.
func (s *runState) merge(page *Page, logger zerolog.Logger) {
	for _, n := range page.Normalized {
		s.normalized[n.To] = n.From
	}

	for _, entry := range page.Pages {
		if entry.Extract == nil || entry.PageID == 0 {
			pagesSkippedTotal.WithLabelValues(skipNoExtract).Inc()
			continue
		}

		attr, ok := s.attrs.Lookup(s.resolve(entry.Title))
		if !ok {
			pagesSkippedTotal.WithLabelValues(skipUnknownTitle).Inc()
			logger.Debug().
				Str("title", entry.Title).
				Msg("Skipping page due to missing attributes")
			continue
		}

		s.articles = append(s.articles, Article{
			Title:   entry.Title,
			Extract: *entry.Extract,
			PageID:  entry.PageID,
			Views:   attr.Views,
			Rank:    attr.Rank,
		})
		articlesCollectedTotal.Inc()
	}
}

// Fetch retrieves extracts for every title in attrs from project and returns
// them sorted by rank ascending. Any request error, or a chunk exceeding the
// continuation bound, aborts the whole fetch without partial results.
func (cf *ContentFetcher) Fetch(ctx context.Context, attrs *Attributes, project string) ([]Article, error) {
	start := time.Now()
	titles := attrs.Titles()

	chunks, err := Chunk(titles, cf.config.ChunkSize)
	if err != nil {
		return nil, err
	}

	cf.logger.Info().
		Str("project", project).
		Int("titles", len(titles)).
		Int("chunk_size", cf.config.ChunkSize).
		Msg("Starting content fetch")

	state := newRunState(attrs)
	chunkIndex := 0
	for chunk := range chunks {
		if err := cf.fetchChunk(ctx, state, project, chunk, chunkIndex); err != nil {
			return nil, err
		}
		chunksTotal.Inc()
		chunkIndex++
	}

	slices.SortStableFunc(state.articles, func(a, b Article) int {
		return a.Rank - b.Rank
	})

	cf.logger.Info().
		Str("project", project).
		Int("chunks", chunkIndex).
		Int("pages", state.pages).
		Int("articles", len(state.articles)).
		Dur("duration", time.Since(start)).
		Msg("Content fetch complete")

	return state.articles, nil
}

// fetchChunk runs the continuation loop for one chunk.
func (cf *ContentFetcher) fetchChunk(ctx context.Context, state *runState, project string, chunk []string, chunkIndex int) error {
	continuation := ""
	counter := 0
	collectedBefore := len(state.articles)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("chunk %d: %w", chunkIndex, err)
		}

		page, err := cf.source.QueryExtracts(ctx, project, chunk, continuation)
		if err != nil {
			return fmt.Errorf("chunk %d page %d: %w", chunkIndex, counter, err)
		}
		pagesFetchedTotal.Inc()
		state.pages++

		state.merge(page, cf.logger)

		continuation = page.Continue
		if continuation == "" {
			break
		}

		counter++
		if counter > cf.config.MaxPagesPerChunk {
			cf.logger.Error().
				Int("chunk", chunkIndex).
				Int("pages", counter).
				Int("limit", cf.config.MaxPagesPerChunk).
				Msg("Continuation limit exceeded")
			return fmt.Errorf("chunk %d after %d pages: %w", chunkIndex, counter, ErrPaginationOverflow)
		}

		cf.logger.Debug().
			Int("chunk", chunkIndex).
			Int("page", counter).
			Str("excontinue", continuation).
			Msg("Following continuation")
	}

	cf.logger.Debug().
		Int("chunk", chunkIndex).
		Int("titles", len(chunk)).
		Int("continuations", counter).
		Int("collected", len(state.articles)-collectedBefore).
		Msg("Chunk complete")

	return nil
}
