package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/server/middleware"
	"github.com/modelrelay/modelrelay/internal/store/cache"
)

type scriptedUpstream struct {
	responses map[string]*ports.UpstreamResponse
	sent      []string
}

func (u *scriptedUpstream) Send(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
	u.sent = append(u.sent, provider+"/"+model)
	if resp, ok := u.responses[model]; ok {
		return resp, nil
	}
	return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{"echo":true}`)}, nil
}

func newDispatchRouter(t *testing.T, upstream ports.Upstream) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := domain.FallbackConfig{
		IsEnabled: true,
		VirtualModels: []domain.VirtualModel{{
			ID:        "vm1",
			Name:      "relay-fast",
			IsEnabled: true,
			FallbackEntries: []domain.FallbackEntry{
				{ID: "e1", Provider: "openai", ModelID: "gpt-4o", Priority: 1},
				{ID: "e2", Provider: "anthropic", ModelID: "claude-3-haiku", Priority: 2},
			},
		}},
	}
	holder := fallback.NewConfigHolder(&memStore{cfg: cfg})
	require.NoError(t, holder.Load(context.Background()))

	dispatcher := fallback.NewDispatcher(holder, cache.NewMemory(), upstream, nil, time.Minute)
	handler := NewDispatchHandler(dispatcher, upstream)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.POST("/v1/chat/completions", handler.CreateCompletion)
	return router
}

func postCompletion(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDispatchHandler_RelaysWinningResponseVerbatim(t *testing.T) {
	upstream := &scriptedUpstream{responses: map[string]*ports.UpstreamResponse{
		"gpt-4o": {StatusCode: 200, Body: []byte(`{"id":"resp-1","choices":[]}`)},
	}}
	router := newDispatchRouter(t, upstream)

	w := postCompletion(router, `{"model":"relay-fast","messages":[{"role":"user","content":"hi"}]}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"id":"resp-1","choices":[]}`, w.Body.String())
	assert.Equal(t, "openai", w.Header().Get("X-Relay-Provider"))
	assert.Equal(t, "gpt-4o", w.Header().Get("X-Relay-Model"))
}

func TestDispatchHandler_ExhaustionSurfacesLastResponse(t *testing.T) {
	upstream := &scriptedUpstream{responses: map[string]*ports.UpstreamResponse{
		"gpt-4o":         {StatusCode: 429, Body: []byte(`{"error":"first"}`)},
		"claude-3-haiku": {StatusCode: 500, Body: []byte(`{"error":"last"}`)},
	}}
	router := newDispatchRouter(t, upstream)

	w := postCompletion(router, `{"model":"relay-fast","messages":[{"role":"user","content":"hi"}]}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, `{"error":"last"}`, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("X-Relay-Exhausted"))
}

func TestDispatchHandler_UnknownModelPassesThrough(t *testing.T) {
	upstream := &scriptedUpstream{responses: map[string]*ports.UpstreamResponse{}}
	router := newDispatchRouter(t, upstream)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`
	w := postCompletion(router, body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Relay-Bypassed"))
	require.Len(t, upstream.sent, 1)
	assert.Equal(t, "openai/gpt-4o", upstream.sent[0], "format detection picks the provider")
}

func TestDispatchHandler_PassthroughHonorsTargetProviderHeader(t *testing.T) {
	upstream := &scriptedUpstream{responses: map[string]*ports.UpstreamResponse{}}
	router := newDispatchRouter(t, upstream)

	body := `{"model":"claude-3-opus","system":"be terse","messages":[{"role":"user","content":"hi"}]}`
	w := postCompletion(router, body, map[string]string{"X-Target-Provider": "anthropic"})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, upstream.sent, 1)
	assert.Equal(t, "anthropic/claude-3-opus", upstream.sent[0])
}

func TestDispatchHandler_MissingModelIsBadRequest(t *testing.T) {
	router := newDispatchRouter(t, &scriptedUpstream{})

	w := postCompletion(router, `{"messages":[{"role":"user","content":"hi"}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Bad Request", gjson.GetBytes(w.Body.Bytes(), "title").Str)
}
