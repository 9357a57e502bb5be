// Package testutil provides testing utilities for the Wikimedia clients.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// APIPath is the MediaWiki action API path served by MockWiki.
const APIPath = "/w/api.php"

// TopPathPrefix is the prefix of pageviews top paths served by MockWiki.
const TopPathPrefix = "/metrics/pageviews/top"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
}

// ExtractsHandler answers one extracts query. call counts from zero.
type ExtractsHandler func(call int, query url.Values) MockResponse

// MockWiki is a configurable mock of the pageviews and MediaWiki APIs.
type MockWiki struct {
	server *httptest.Server
	mu     sync.Mutex

	top      map[string]MockResponse
	extracts ExtractsHandler

	// Tracking
	requestCount      int
	topRequests       []string
	extractRequests   []url.Values
	lastRequestHeader http.Header
}

// NewMockWiki creates a new mock Wikimedia server.
func NewMockWiki() *MockWiki {
	mock := &MockWiki{
		top: make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockWiki) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	m.lastRequestHeader = r.Header.Clone()

	var resp MockResponse
	switch {
	case r.URL.Path == APIPath:
		call := len(m.extractRequests)
		m.extractRequests = append(m.extractRequests, r.URL.Query())
		handler := m.extracts
		m.mu.Unlock()

		if handler == nil {
			resp = MockResponse{StatusCode: http.StatusOK, Body: `{"batchcomplete":"","query":{"pages":{}}}`}
		} else {
			resp = handler(call, r.URL.Query())
		}

	case strings.HasPrefix(r.URL.Path, TopPathPrefix+"/"):
		path := strings.TrimPrefix(r.URL.Path, TopPathPrefix)
		m.topRequests = append(m.topRequests, path)
		configured, ok := m.top[path]
		m.mu.Unlock()

		if ok {
			resp = configured
		} else {
			resp = MockResponse{StatusCode: http.StatusNotFound, Body: `{"type":"https://mediawiki.org/wiki/HyperSwitch/errors/not_found"}`}
		}

	default:
		m.mu.Unlock()
		resp = MockResponse{StatusCode: http.StatusNotFound}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server URL, usable as the content base URL.
func (m *MockWiki) URL() string {
	return m.server.URL
}

// MetricsURL returns the base URL to use for pageviews top requests.
func (m *MockWiki) MetricsURL() string {
	return m.server.URL + TopPathPrefix
}

// Close shuts down the mock server.
func (m *MockWiki) Close() {
	m.server.Close()
}

// SetTopResponse configures the response for a top path such as
// "/he.wikipedia.org/all-access/2024/05/07".
func (m *MockWiki) SetTopResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.top[path] = resp
}

// SetTopArticles serves a well-formed ranking for path.
func (m *MockWiki) SetTopArticles(path string, articles ...TopEntry) {
	m.SetTopResponse(path, MockResponse{StatusCode: http.StatusOK, Body: TopBody(articles...)})
}

// SetExtractsHandler sets the handler for api.php requests.
func (m *MockWiki) SetExtractsHandler(handler ExtractsHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracts = handler
}

// RequestCount returns the number of requests made to the server.
func (m *MockWiki) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// TopRequests returns the top paths requested so far.
func (m *MockWiki) TopRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topRequests...)
}

// ExtractRequests returns the query parameters of every api.php request.
func (m *MockWiki) ExtractRequests() []url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]url.Values(nil), m.extractRequests...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockWiki) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestHeader
}

// TopEntry is one article of a mock ranking.
type TopEntry struct {
	Article string `json:"article"`
	Views   int64  `json:"views"`
	Rank    int    `json:"rank"`
}

// TopBody renders a pageviews top response.
func TopBody(articles ...TopEntry) string {
	if articles == nil {
		articles = []TopEntry{}
	}
	body := map[string]any{
		"items": []map[string]any{{
			"project":  "he.wikipedia",
			"access":   "all-access",
			"articles": articles,
		}},
	}
	return mustJSON(body)
}

// ExtractPage is one page of a mock extracts response.
// A nil Extract omits the key, as the API does for deferred or missing pages.
type ExtractPage struct {
	PageID  int64
	Title   string
	Extract *string
	Missing bool
}

// Normalized is one from/to pair of a mock extracts response.
type Normalized struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExtractsBody renders an extracts response. An empty cont marks the batch complete;
// otherwise cont is sent as a numeric excontinue when it parses as one.
func ExtractsBody(normalized []Normalized, cont string, pages ...ExtractPage) string {
	pageMap := make(map[string]map[string]any, len(pages))
	missing := -1
	for _, p := range pages {
		entry := map[string]any{"ns": 0, "title": p.Title}
		key := fmt.Sprint(p.PageID)
		if p.Missing {
			entry["missing"] = ""
			key = fmt.Sprint(missing)
			missing--
		} else {
			entry["pageid"] = p.PageID
		}
		if p.Extract != nil {
			entry["extract"] = *p.Extract
		}
		pageMap[key] = entry
	}

	query := map[string]any{"pages": pageMap}
	if len(normalized) > 0 {
		query["normalized"] = normalized
	}

	body := map[string]any{"query": query}
	if cont == "" {
		body["batchcomplete"] = ""
	} else {
		var token any = cont
		var n int
		if _, err := fmt.Sscanf(cont, "%d", &n); err == nil && fmt.Sprint(n) == cont {
			token = n
		}
		body["continue"] = map[string]any{"excontinue": token, "continue": "||"}
	}
	return mustJSON(body)
}

// Text returns a pointer to s, for ExtractPage.Extract.
func Text(s string) *string {
	return &s
}

// OK wraps body in a 200 response.
func OK(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
