package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(url string) *Connector {
	return NewConnector(&ConnectorConfig{BaseURL: url, Logger: zap.NewNop()}, WithAuthToken("secret"))
}

func TestDoRequestRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/complete", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "abc", r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "echo " + body["prompt"]})
	}))
	defer srv.Close()

	var resp struct {
		Text string `json:"text"`
	}
	err := newTestConnector(srv.URL).DoRequest(context.Background(), http.MethodPost, "/v1/complete",
		map[string]string{"prompt": "hi"}, &resp, WithHeader("X-Request-ID", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "echo hi", resp.Text)
}

func TestDoRequestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestConnector(srv.URL).DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.True(t, IsRetryable(err))
}

func TestDownloadLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c := newTestConnector(srv.URL)

	data, err := c.Download(context.Background(), "/file", 64)
	require.NoError(t, err)
	assert.Len(t, data, 64)

	_, err = c.Download(context.Background(), "/file", 10)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&NetworkError{Err: errors.New("connection refused")}))
	assert.True(t, IsRetryable(&HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsRetryable(errors.New("decode response")))
}

func TestObserverAndEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var gotHost string
	var gotStatus int
	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()},
		WithAuthToken(""),
		WithObserver(func(host string, status int, _ time.Duration, err error) {
			gotHost, gotStatus = host, status
			assert.NoError(t, err)
		}),
	)

	require.NoError(t, c.DoRequest(context.Background(), http.MethodPost, "/events", map[string]string{"event": "x"}, nil))
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), gotHost)
	assert.Equal(t, http.StatusNoContent, gotStatus)
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("https://api.telegram.org/file/bot123456:AAF-x_9/documents/file_1.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org/file/bot[REDACTED]/documents/file_1.xlsx", redactURL(u))
}
