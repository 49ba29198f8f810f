package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/server/middleware"
	"github.com/modelrelay/modelrelay/internal/server/validator"
)

type memStore struct {
	cfg domain.FallbackConfig
}

func (s *memStore) Load(ctx context.Context) (domain.FallbackConfig, error) { return s.cfg, nil }
func (s *memStore) Save(ctx context.Context, cfg domain.FallbackConfig) error {
	s.cfg = cfg
	return nil
}

func newAdminRouter(t *testing.T) (*gin.Engine, *fallback.ConfigHolder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.InitValidator()

	holder := fallback.NewConfigHolder(&memStore{})
	require.NoError(t, holder.Load(context.Background()))

	handler := NewModelsHandler(holder)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.POST("/v1/virtual-models", handler.Create)
	router.POST("/v1/virtual-models/:id/entries", handler.AddEntry)
	router.DELETE("/v1/virtual-models/:id", handler.Delete)
	router.PUT("/v1/fallback", handler.SetEnabled)
	return router, holder
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestModelsHandler_CreateAndPersist(t *testing.T) {
	router, holder := newAdminRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/virtual-models", `{"name":"relay-fast"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	snapshot := holder.Snapshot()
	require.Len(t, snapshot.VirtualModels, 1)
	assert.Equal(t, "relay-fast", snapshot.VirtualModels[0].Name)
}

func TestModelsHandler_DuplicateNameConflicts(t *testing.T) {
	router, _ := newAdminRouter(t)

	doJSON(router, http.MethodPost, "/v1/virtual-models", `{"name":"Opus"}`)
	w := doJSON(router, http.MethodPost, "/v1/virtual-models", `{"name":"opus"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestModelsHandler_ValidationErrorIsProblemDocument(t *testing.T) {
	router, _ := newAdminRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/virtual-models", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.NotEmpty(t, problem["title"])
}

func TestModelsHandler_AddEntryToUnknownModel(t *testing.T) {
	router, _ := newAdminRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/virtual-models/nope/entries",
		`{"provider":"openai","modelId":"gpt-4o"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModelsHandler_AddEntryAppendsWithDensePriority(t *testing.T) {
	router, holder := newAdminRouter(t)

	doJSON(router, http.MethodPost, "/v1/virtual-models", `{"name":"relay"}`)
	id := holder.Snapshot().VirtualModels[0].ID

	doJSON(router, http.MethodPost, "/v1/virtual-models/"+id+"/entries", `{"provider":"openai","modelId":"gpt-4o"}`)
	w := doJSON(router, http.MethodPost, "/v1/virtual-models/"+id+"/entries", `{"provider":"anthropic","modelId":"claude-3-haiku"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	entries := holder.Snapshot().VirtualModels[0].FallbackEntries
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Priority)
	assert.Equal(t, 2, entries[1].Priority)
}

func TestModelsHandler_SetEnabled(t *testing.T) {
	router, holder := newAdminRouter(t)

	w := doJSON(router, http.MethodPut, "/v1/fallback", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, holder.Snapshot().IsEnabled)

	w = doJSON(router, http.MethodPut, "/v1/fallback", `{"enabled":false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, holder.Snapshot().IsEnabled)
}

func TestModelsHandler_DeleteUnknownModel(t *testing.T) {
	router, _ := newAdminRouter(t)

	w := doJSON(router, http.MethodDelete, "/v1/virtual-models/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
