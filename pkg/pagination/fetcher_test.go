package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceCall struct {
	Titles       []string
	Continuation string
}

// fakeSource replays scripted responses and records every call.
type fakeSource struct {
	respond func(call int, titles []string, continuation string) (*Page, error)
	calls   []sourceCall
}

func (f *fakeSource) QueryExtracts(ctx context.Context, project string, titles []string, continuation string) (*Page, error) {
	call := len(f.calls)
	f.calls = append(f.calls, sourceCall{
		Titles:       append([]string(nil), titles...),
		Continuation: continuation,
	})
	return f.respond(call, titles, continuation)
}

func text(s string) *string { return &s }

func page(title string, id int64, extract string) PageEntry {
	return PageEntry{Title: title, PageID: id, Extract: text(extract)}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50, cfg.ChunkSize)
	assert.Equal(t, cfg.ChunkSize, cfg.MaxPagesPerChunk)
}

func TestNewContentFetcher_Defaults(t *testing.T) {
	cf := NewContentFetcher(&fakeSource{}, Config{})
	assert.Equal(t, 50, cf.config.ChunkSize)
	assert.Equal(t, 50, cf.config.MaxPagesPerChunk)

	cf = NewContentFetcher(&fakeSource{}, Config{ChunkSize: 10})
	assert.Equal(t, 10, cf.config.MaxPagesPerChunk, "ceiling follows chunk size")
}

func TestFetch_SingleChunkSingleCall(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1, Views: 100})
	attrs.Add("ב", Attribute{Rank: 2, Views: 50})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Pages: []PageEntry{
			page("ב", 20, "extract b"),
			page("א", 10, "extract a"),
		}}, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "he.wikipedia.org")
	require.NoError(t, err)

	require.Len(t, src.calls, 1, "both titles fit into one chunk")
	assert.Equal(t, []string{"א", "ב"}, src.calls[0].Titles)
	assert.Empty(t, src.calls[0].Continuation)

	assert.Equal(t, []Article{
		{Title: "א", Extract: "extract a", PageID: 10, Views: 100, Rank: 1},
		{Title: "ב", Extract: "extract b", PageID: 20, Views: 50, Rank: 2},
	}, articles)
}

func TestFetch_FollowsContinuation(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1, Views: 100})
	attrs.Add("ב", Attribute{Rank: 2, Views: 50})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		switch cont {
		case "":
			// Second extract deferred to the next round.
			return &Page{
				Pages:    []PageEntry{page("א", 10, "a"), {Title: "ב", PageID: 20}},
				Continue: "1",
			}, nil
		case "1":
			return &Page{Pages: []PageEntry{{Title: "א", PageID: 10}, page("ב", 20, "b")}}, nil
		}
		return nil, fmt.Errorf("unexpected token %q", cont)
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "he.wikipedia.org")
	require.NoError(t, err)

	require.Len(t, src.calls, 2)
	assert.Equal(t, "1", src.calls[1].Continuation)
	assert.Equal(t, src.calls[0].Titles, src.calls[1].Titles, "continuation repeats the chunk titles")

	require.Len(t, articles, 2, "deferred entries are not emitted twice")
	assert.Equal(t, "a", articles[0].Extract)
	assert.Equal(t, "b", articles[1].Extract)
}

func TestFetch_ContinuationDoesNotLeakAcrossChunks(t *testing.T) {
	attrs := NewAttributes()
	for i := 1; i <= 5; i++ {
		attrs.Add(fmt.Sprintf("t%d", i), Attribute{Rank: i})
	}

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if cont == "" && titles[0] == "t1" {
			return &Page{Continue: "next"}, nil
		}
		return &Page{}, nil
	}}

	_, err := NewContentFetcher(src, Config{ChunkSize: 2}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)

	require.Len(t, src.calls, 4)
	assert.Equal(t, []sourceCall{
		{Titles: []string{"t1", "t2"}, Continuation: ""},
		{Titles: []string{"t1", "t2"}, Continuation: "next"},
		{Titles: []string{"t3", "t4"}, Continuation: ""},
		{Titles: []string{"t5"}, Continuation: ""},
	}, src.calls)
}

func TestFetch_PaginationOverflow(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})
	attrs.Add("ב", Attribute{Rank: 2})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{
			Pages:    []PageEntry{page("א", 1, "a")},
			Continue: fmt.Sprintf("tok-%d", call),
		}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 2}).Fetch(context.Background(), attrs, "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaginationOverflow))
	assert.Nil(t, articles, "no partial results on overflow")

	// Initial request plus MaxPagesPerChunk continuations, then one more trips the bound.
	assert.Len(t, src.calls, 3)
}

func TestFetch_OverflowAtDefaultCeiling(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Continue: "again"}, nil
	}}

	_, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "p")
	require.ErrorIs(t, err, ErrPaginationOverflow)
	assert.Len(t, src.calls, 51)
}

func TestFetch_DeepButFinitePagination(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})

	// Exactly MaxPagesPerChunk continuations is still allowed.
	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if call < 3 {
			return &Page{Continue: "more"}, nil
		}
		return &Page{Pages: []PageEntry{page("א", 1, "a")}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 3}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	assert.Len(t, src.calls, 4)
	assert.Len(t, articles, 1)
}

func TestFetch_NormalizationResolvesOriginalTitle(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("X", Attribute{Rank: 7, Views: 70})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{
			Normalized: []Normalization{{From: "X", To: "Y"}},
			Pages:      []PageEntry{page("Y", 5, "y extract")},
		}, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.Equal(t, Article{Title: "Y", Extract: "y extract", PageID: 5, Views: 70, Rank: 7}, articles[0],
		"server title is kept, attributes come from the original title")
}

func TestFetch_NormalizationPersistsAcrossPages(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("עמוד_א", Attribute{Rank: 1, Views: 10})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if cont == "" {
			return &Page{
				Normalized: []Normalization{{From: "עמוד_א", To: "עמוד א"}},
				Pages:      []PageEntry{{Title: "עמוד א", PageID: 3}},
				Continue:   "c",
			}, nil
		}
		// Continuation responses do not repeat the normalized block.
		return &Page{Pages: []PageEntry{page("עמוד א", 3, "text")}}, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "עמוד א", articles[0].Title)
	assert.Equal(t, 1, articles[0].Rank)
}

func TestFetch_NormalizationPersistsAcrossChunks(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("a_1", Attribute{Rank: 1})
	attrs.Add("b", Attribute{Rank: 2})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if call == 0 {
			return &Page{Normalized: []Normalization{{From: "a_1", To: "a 1"}}}, nil
		}
		// A page surfacing under its canonical title in a later chunk still resolves.
		return &Page{Pages: []PageEntry{page("a 1", 1, "late"), page("b", 2, "b")}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 1}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a 1", articles[0].Title)
	assert.Equal(t, "b", articles[1].Title)
}

func TestFetch_UnknownTitleSkipped(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})
	attrs.Add("ג", Attribute{Rank: 3})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if titles[0] == "א" {
			return &Page{Pages: []PageEntry{page("א", 1, "a"), page("זר", 99, "stranger")}}, nil
		}
		return &Page{Pages: []PageEntry{page("ג", 3, "c")}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 1}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)

	require.Len(t, src.calls, 2, "remaining chunks still processed")
	titles := make([]string, len(articles))
	for i, a := range articles {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"א", "ג"}, titles)
}

func TestFetch_MissingPagesSkipped(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("חסר", Attribute{Rank: 1})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Pages: []PageEntry{{Title: "חסר"}}}, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFetch_EmptyExtractKept(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("ריק", Attribute{Rank: 1})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Pages: []PageEntry{page("ריק", 4, "")}}, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "", articles[0].Extract)
}

func TestFetch_SortedByRankRegardlessOfArrival(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("B", Attribute{Rank: 5, Views: 5})
	attrs.Add("A", Attribute{Rank: 2, Views: 20})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Pages: []PageEntry{page(titles[0], int64(call+1), strings.ToLower(titles[0]))}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 1}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)

	require.Len(t, articles, 2)
	assert.Equal(t, "A", articles[0].Title)
	assert.Equal(t, "B", articles[1].Title)
	assert.Equal(t, "B", src.calls[0].Titles[0], "B was processed first")
}

func TestFetch_NoDeduplication(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})
	attrs.Add("ב", Attribute{Rank: 2})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{Pages: []PageEntry{page("א", 1, "a")}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 1}).Fetch(context.Background(), attrs, "p")
	require.NoError(t, err)
	assert.Len(t, articles, 2, "same page returned by two chunks appears twice")
}

func TestFetch_SourceErrorAborts(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})
	attrs.Add("ב", Attribute{Rank: 2})

	boom := errors.New("boom")
	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		if call == 1 {
			return nil, boom
		}
		return &Page{Pages: []PageEntry{page(titles[0], 1, "x")}}, nil
	}}

	articles, err := NewContentFetcher(src, Config{ChunkSize: 1}).Fetch(context.Background(), attrs, "p")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, articles)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestFetch_ContextCancelled(t *testing.T) {
	attrs := NewAttributes()
	attrs.Add("א", Attribute{Rank: 1})

	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		return &Page{}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewContentFetcher(src, DefaultConfig()).Fetch(ctx, attrs, "p")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

func TestFetch_EmptyAttributes(t *testing.T) {
	src := &fakeSource{respond: func(call int, titles []string, cont string) (*Page, error) {
		t.Fatal("no request expected")
		return nil, nil
	}}

	articles, err := NewContentFetcher(src, DefaultConfig()).Fetch(context.Background(), NewAttributes(), "p")
	require.NoError(t, err)
	assert.Empty(t, articles)
}
