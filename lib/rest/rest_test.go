package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticHeaders stands in for lib/auth in tests.
type staticHeaders map[string]string

func (h staticHeaders) Headers() (map[string]string, error) { return h, nil }

func testClient(srv *httptest.Server) *Client {
	return New(srv.URL, staticHeaders{"x-user-id": "tester", "authorization": "token"},
		WithBackoffUnit(time.Millisecond))
}

func TestRequestDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tester", r.Header.Get("x-user-id"))
		assert.Equal(t, "token", r.Header.Get("authorization"))
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))

		fmt.Fprint(w, `{"id":"dep-1","status":"RUNNING"}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	defer c.Close()

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/deployment/dep-1", nil, &out))
	assert.Equal(t, "dep-1", out.ID)
	assert.Equal(t, "RUNNING", out.Status)
}

func TestRequestSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv)
	defer c.Close()

	body := map[string]int{"replicas": 2}
	require.NoError(t, c.Request(context.Background(), http.MethodPost, "/deployment/dep-1/update-replica-count", body, nil))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	defer c.Close()

	var out struct {
		OK bool `json:"ok"`
	}

	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/deployments", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"deployment not found"}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	defer c.Close()

	err := c.Request(context.Background(), http.MethodGet, "/deployment/missing", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "not found")
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, staticHeaders{}, WithRetries(2), WithBackoffUnit(time.Millisecond))
	defer c.Close()

	err := c.Request(context.Background(), http.MethodGet, "/deployments", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)

	// initial attempt plus two retries
	assert.Equal(t, int32(3), hits.Load())
}

func TestNetworkFailureSurfacesAsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, staticHeaders{}, WithRetries(1), WithBackoffUnit(time.Millisecond))
	defer c.Close()

	err := c.Request(context.Background(), http.MethodGet, "/deployments", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Error(t, apiErr.Err)
}

func TestContextCancelStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, staticHeaders{}, WithRetries(5), WithBackoffUnit(time.Hour))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Request(ctx, http.MethodGet, "/deployments", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
