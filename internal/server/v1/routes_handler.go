package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/fallback"
)

// RoutesHandler exposes per-virtual-model routing observability.
type RoutesHandler struct {
	dispatcher *fallback.Dispatcher
	cache      ports.RouteCache
}

func NewRoutesHandler(dispatcher *fallback.Dispatcher, cache ports.RouteCache) *RoutesHandler {
	return &RoutesHandler{dispatcher: dispatcher, cache: cache}
}

// Get returns the last observed route state and sticky-cache info for a
// virtual model.
//
// GET /v1/routes/:name
func (h *RoutesHandler) Get(c *gin.Context) {
	name := c.Param("name")

	state, hasState := h.dispatcher.RouteState(name)
	if !hasState {
		if _, known := h.dispatcher.Resolve(name); !known {
			_ = c.Error(domain.NotFoundError("No route state for that virtual model"))
			return
		}
	}

	resp := gin.H{"virtualModel": name}
	if hasState {
		resp["state"] = state
	}

	if h.cache != nil {
		if info, ok := h.cache.Get(c.Request.Context(), name); ok {
			resp["stickyEntry"] = gin.H{
				"entryId":  info.EntryID,
				"cachedAt": info.CachedAt,
				"valid":    info.Valid(time.Now()),
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
