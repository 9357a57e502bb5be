package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a gateway without pacing so tests run fast.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(),
		},
		{
			name: "empty user agent",
			config: Config{
				UserAgent: "",
			},
			errorMsg: "user-agent is required",
		},
		{
			name: "negative timeout",
			config: Config{
				UserAgent: "wikitop-test/1.0",
				Timeout:   -time.Second,
			},
			errorMsg: "timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Zero(t, cfg.Timeout, "no timeout by default")
	assert.Greater(t, cfg.RequestsPerSecond, 0.0)
}

func TestGet_UserAgentAndParams(t *testing.T) {
	var gotUA string
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	c := newTestClient(t)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", "א|ב")

	body, err := c.Get(context.Background(), server.URL+"/w/api.php", params)
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok": true}`, string(body))
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "query", gotQuery.Get("action"))
	assert.Equal(t, "א|ב", gotQuery.Get("titles"))
}

func TestGet_NonSuccessStatus(t *testing.T) {
	statuses := []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			requests := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(status)
			}))
			defer server.Close()

			c := newTestClient(t)
			rawURL := server.URL + "/top"

			_, err := c.Get(context.Background(), rawURL, nil)
			require.Error(t, err)

			var reqErr *RemoteRequestError
			require.True(t, errors.As(err, &reqErr), "expected RemoteRequestError, got %T", err)
			assert.Equal(t, status, reqErr.StatusCode)
			assert.Equal(t, rawURL, reqErr.URL)
			assert.Equal(t, 1, requests, "requests must not be retried")
		})
	}
}

func TestGet_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rawURL := server.URL
	server.Close()

	c := newTestClient(t)

	_, err := c.Get(context.Background(), rawURL, nil)
	require.Error(t, err)

	var reqErr *RemoteRequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Zero(t, reqErr.StatusCode)
	assert.NotNil(t, reqErr.Err)
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			w.Write([]byte(`{"name": "יחסות"}`))
		default:
			w.Write([]byte(`<html>not json</html>`))
		}
	}))
	defer server.Close()

	c := newTestClient(t)

	var good struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(context.Background(), server.URL+"/good", nil, &good))
	assert.Equal(t, "יחסות", good.Name)

	var bad struct{}
	err := c.GetJSON(context.Background(), server.URL+"/bad", nil, &bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "he.wikipedia.org", hostOf("https://he.wikipedia.org/w/api.php"))
	assert.Equal(t, "unknown", hostOf("::not a url"))
	assert.Equal(t, "unknown", hostOf("/relative/path"))
}
