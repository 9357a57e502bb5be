// Package metrics exposes the Prometheus registry used by wikitop.
// Metrics are defined in their respective packages (client, ratelimit,
// pagination, pipeline) and registered via promauto on the default registry.
//
// A run is a short-lived batch job, so metrics are exported once at the end
// in the node_exporter textfile format rather than served over HTTP.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by all packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all metrics gathered from g to path in text
// exposition format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = Gatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Gateway Metrics (pkg/client):
//   - wikitop_requests_total{host, status} (Counter): Requests by host and HTTP status
//   - wikitop_request_duration_seconds{host} (Histogram): Request duration by host
//   - wikitop_request_errors_total{class} (Counter): Failed requests by class (client, server, network, other)
//
// Pacing Metrics (pkg/ratelimit):
//   - wikitop_rate_limit_waits_total (Counter): Requests delayed by the limiter
//   - wikitop_rate_limit_wait_seconds (Histogram): Time spent waiting
//
// Fetch Metrics (pkg/pagination):
//   - wikitop_chunks_total (Counter): Title chunks completed
//   - wikitop_pages_fetched_total (Counter): Extract responses processed, continuations included
//   - wikitop_pages_skipped_total{reason} (Counter): Pages dropped (unknown_title, no_extract)
//   - wikitop_articles_collected_total (Counter): Articles collected
//
// Run Metrics (pkg/pipeline):
//   - wikitop_titles_filtered_total (Counter): Ranked titles rejected by the legality filter
//   - wikitop_duplicates_removed_total (Counter): Repeated page ids dropped from the result
//   - wikitop_last_run_articles (Gauge): Articles in the last result set
//   - wikitop_last_run_duration_seconds (Gauge): Duration of the last run
//
// Example Prometheus Queries:
//
//   # Continuation rounds per chunk
//   wikitop_pages_fetched_total / wikitop_chunks_total
//
//   # Share of pages dropped for unknown titles
//   wikitop_pages_skipped_total{reason="unknown_title"} / wikitop_pages_fetched_total
