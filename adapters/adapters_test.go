package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"loading"}`))
	}))
	defer srv.Close()

	resp, err := DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL,
		map[string]string{"Authorization": "Bearer k"}, map[string]string{"inputs": "x"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, `{"error":"loading"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, map[string]string{"inputs": "x"}, got)
}

func TestDoJSONWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.Write([]byte{0x00, 0x01})
	}))
	defer srv.Close()

	resp, err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, resp.Body)
}

func TestDoJSONTransportErrors(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := DoJSON(context.Background(), http.DefaultClient, http.MethodGet, url, nil, nil)
		assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := DoJSON(ctx, srv.Client(), http.MethodGet, srv.URL, nil, nil)
		assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 14, Clamp(0, 14, 1, 25))
	assert.Equal(t, 14, Clamp(-3, 14, 1, 25))
	assert.Equal(t, 25, Clamp(100, 14, 1, 25))
	assert.Equal(t, 7, Clamp(7, 14, 1, 25))
}
