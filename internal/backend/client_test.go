package backend_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"InterviewGuru/internal/backend"
	"InterviewGuru/internal/serviceerr"
)

func newClient(t *testing.T, host string, timeout time.Duration) *backend.Client {
	t.Helper()
	c, err := backend.NewClient(backend.Config{Host: host, Model: "llama3:8b", Timeout: timeout},
		otel.Tracer("test"), otel.Meter("test"))
	require.NoError(t, err)
	return c
}

func TestClient_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(backend.GenerateResponse{Model: "llama3:8b", Response: `{"nextQuestion":"Why?"}`, Done: true})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", time.Second)
	text, err := c.Generate(t.Context(), "hello", backend.Options{Temperature: 0.14, KeepAlivePersist: true})
	require.NoError(t, err)

	assert.Equal(t, `{"nextQuestion":"Why?"}`, text)
	assert.Equal(t, "llama3:8b", got["model"])
	assert.Equal(t, "hello", got["prompt"])
	assert.Equal(t, false, got["stream"])
	assert.InDelta(t, 0.14, got["temperature"], 1e-9)
	assert.InDelta(t, 0.14, got["options"].(map[string]any)["temperature"], 1e-9)
	assert.EqualValues(t, -1, got["keep_alive"])
}

func TestClient_GenerateOmitsKeepAlive(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":""}`))
	}))
	defer srv.Close()

	text, err := newClient(t, srv.URL, time.Second).Generate(t.Context(), "p", backend.Options{Temperature: 0.18})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.NotContains(t, got, "keep_alive")
}

func TestClient_GenerateRawBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"nextQuestion":"direct"}`))
	}))
	defer srv.Close()

	text, err := newClient(t, srv.URL, time.Second).Generate(t.Context(), "p", backend.Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"nextQuestion":"direct"}`, text)
}

func TestClient_GenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3:8b' not found"}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, time.Second).Generate(t.Context(), "p", backend.Options{})
	require.Error(t, err)

	var upstream *serviceerr.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, "model 'llama3:8b' not found", upstream.Detail)
	assert.Equal(t, http.StatusInternalServerError, serviceerr.HTTPStatus(err))
}

func TestClient_GenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newClient(t, srv.URL, 50*time.Millisecond).Generate(t.Context(), "p", backend.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, serviceerr.ErrTimeout)

	var upstream *serviceerr.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestClient_GenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url, time.Second).Generate(t.Context(), "p", backend.Options{})
	var upstream *serviceerr.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Zero(t, upstream.StatusCode)
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(backend.OllamaTagsResponse{Models: []backend.OllamaModel{
			{Name: "llama3:8b", Size: 4 << 30},
			{Name: "mistral:latest"},
		}})
	}))
	defer srv.Close()

	models, err := newClient(t, srv.URL, time.Second).ListModels(t.Context())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:8b", models[0].Name)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := backend.NewClient(backend.Config{}, otel.Tracer("test"), otel.Meter("test"))
	require.NoError(t, err)
	assert.Equal(t, backend.DefaultHost, c.Host())
	assert.Equal(t, backend.DefaultModel, c.Model())
}
