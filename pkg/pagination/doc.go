// Package pagination fetches article extracts in fixed-size title chunks
// from a continuation-paginated MediaWiki query endpoint.
//
// The extracts endpoint accepts at most 50 titles per request and may return
// extracts for only part of them, together with an opaque excontinue token.
// This package drives that loop for every chunk, reverses server-side title
// normalization so each page can be matched against the caller's attributes,
// and caps the number of continuation rounds per chunk so a misbehaving
// server cannot keep the run alive forever.
//
// Example usage:
//
//	attrs := pagination.NewAttributes()
//	attrs.Add("יחסות", pagination.Attribute{Rank: 1, Views: 1200})
//
//	fetcher := pagination.NewContentFetcher(wikiClient, pagination.DefaultConfig())
//	articles, err := fetcher.Fetch(ctx, attrs, "he.wikipedia.org")
//
// The content fetcher:
//   - Splits the title universe into chunks of Config.ChunkSize
//   - Follows excontinue tokens within a chunk, never across chunks
//   - Keeps one normalization map for the whole run
//   - Skips pages it cannot match to an attribute entry
//   - Fails with ErrPaginationOverflow when a chunk needs more than
//     Config.MaxPagesPerChunk continuation rounds
//   - Returns articles sorted by rank; it does not deduplicate
//
// Fetching is sequential: one request in flight at a time.
package pagination
