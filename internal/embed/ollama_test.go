package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	// Given: a fake Ollama that returns one vector per input
	var requests []ollamaEmbedRequest
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{3, 4})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "nomic-embed-text", BatchSize: 2})

	// When: embedding three texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	// Then: two requests are made and vectors are normalized
	require.Len(t, vecs, 3)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vecs[2], 1e-6)
	require.Len(t, requests, 2)
	assert.Equal(t, []string{"a", "b"}, requests[0].Input)
	assert.Equal(t, []string{"c"}, requests[1].Input)
	assert.Equal(t, 2, e.Dimensions())
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL})

	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": []}`))
	})
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL})

	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestOllamaEmbedder_Timeout(t *testing.T) {
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOllamaEmbedder_Available(t *testing.T) {
	srv := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"}]}`))
	})

	assert.True(t, NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"}).Available(context.Background()))
	assert.False(t, NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "mxbai-embed-large"}).Available(context.Background()))
}

func TestOllamaEmbedder_Defaults(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{Host: "http://example.test/"})
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
	assert.Equal(t, "http://example.test", e.config.Host)
	assert.Equal(t, 0, e.Dimensions())
	assert.NoError(t, e.Close())
}
