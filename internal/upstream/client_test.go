package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, providers ...string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := make(map[string]string)
	endpoints := make(map[string]Endpoint)
	for _, p := range providers {
		tokens[p] = "secret-" + p
		endpoints[p] = Endpoint{BaseURL: srv.URL}
	}
	return NewClient(NewStaticTokenSource(tokens), endpoints, time.Second), srv
}

func TestClient_OpenAIPathAndBearerAuth(t *testing.T) {
	var gotPath, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, "openai")

	resp, err := client.Send(context.Background(), "openai", "gpt-4o", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer secret-openai", gotAuth)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_AnthropicHeadersAndPath(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.WriteHeader(http.StatusOK)
	}, "anthropic")

	_, err := client.Send(context.Background(), "anthropic", "claude-3-haiku", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "secret-anthropic", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
}

func TestClient_GooglePathEmbedsModel(t *testing.T) {
	var gotPath, gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.WriteHeader(http.StatusOK)
	}, "google")

	_, err := client.Send(context.Background(), "google", "gemini-pro", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", gotPath)
	assert.Equal(t, "secret-google", gotKey)
}

func TestClient_ErrorStatusIsNotASendError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}, "openai")

	resp, err := client.Send(context.Background(), "openai", "gpt-4o", []byte(`{}`))
	require.NoError(t, err, "classification is the dispatcher's job")
	assert.Equal(t, 429, resp.StatusCode)
}

func TestClient_UnknownProviderFails(t *testing.T) {
	client := NewClient(NewStaticTokenSource(nil), nil, time.Second)
	_, err := client.Send(context.Background(), "nonexistent", "m", []byte(`{}`))
	assert.Error(t, err)
}

func TestClient_MissingTokenFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, "openai")

	_, err := client.Send(context.Background(), "groq", "llama", []byte(`{}`))
	assert.Error(t, err)
}

func TestStaticTokenSource_SetToken(t *testing.T) {
	src := NewStaticTokenSource(map[string]string{"OpenAI": "old"})

	token, err := src.Token(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "old", token)

	src.SetToken("openai", "new")
	token, err = src.Token(context.Background(), "OPENAI")
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}
