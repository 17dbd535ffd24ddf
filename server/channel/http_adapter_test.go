package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/internal/retry"
)

func testAdapter(t *testing.T, handler http.HandlerFunc) *HTTPAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewHTTPAdapter(srv.URL, "test-key")
	a.retry = retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond}
	return a
}

func TestSendTextRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := a.SendText(context.Background(), "session-1", "5511999990000", "olá")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendTextExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := a.SendText(context.Background(), "session-1", "5511999990000", "olá")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestSendFileCarriesAttachmentFields(t *testing.T) {
	var got map[string]any
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/file", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := a.SendFile(context.Background(), "session-1", "5511999990000", &FilePayload{
		URL:           "https://cdn.example.com/catalogo/camisa.jpg",
		FileName:      "camisa.jpg",
		DocumentTitle: "Camisa Polo",
	})
	require.NoError(t, err)
	assert.Equal(t, "camisa.jpg", got["filename"])
	assert.Equal(t, "Camisa Polo", got["title"])
	assert.Equal(t, "https://cdn.example.com/catalogo/camisa.jpg", got["url"])
}

func TestSendFileNilPayload(t *testing.T) {
	a := NewHTTPAdapter("http://unused", "k")
	assert.Error(t, a.SendFile(context.Background(), "s", "p", nil))
}
