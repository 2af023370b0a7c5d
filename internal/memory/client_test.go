package memory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memories/mem-1/sessions/s-1/events", r.URL.Path)
		assert.Equal(t, "u-1", r.URL.Query().Get("actorId"))
		assert.Equal(t, "100", r.URL.Query().Get("maxResults"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"events":[{"eventTimestamp":"2026-01-01T00:00:00Z","payload":[]}]}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, MemoryID: "mem-1"}, nil)
	events, err := c.ListEvents(context.Background(), "s-1", "u-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"events":[]}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, MemoryID: "m", Timeout: 5 * time.Second}, nil)
	events, err := c.ListEvents(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, MemoryID: "m"}, nil)
	_, err := c.ListEvents(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientNotConfigured(t *testing.T) {
	_, err := NewClient(ClientOptions{}, nil).ListEvents(context.Background(), "s", "u")
	assert.Error(t, err)
}
