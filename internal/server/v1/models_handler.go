package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/server/validator"
)

// ModelsHandler exposes the virtual model registry over HTTP. All
// mutations go through the config holder so they are persisted before
// becoming visible to the dispatcher.
type ModelsHandler struct {
	holder *fallback.ConfigHolder
}

func NewModelsHandler(holder *fallback.ConfigHolder) *ModelsHandler {
	return &ModelsHandler{holder: holder}
}

type createModelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

type renameModelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=128"`
}

type addEntryRequest struct {
	Provider string `json:"provider" binding:"required,min=1,max=64"`
	ModelID  string `json:"modelId" binding:"required,min=1,max=128"`
}

type moveEntryRequest struct {
	Index *int `json:"index" binding:"required,gte=0"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// List returns the full fallback configuration snapshot.
//
// GET /v1/virtual-models
func (h *ModelsHandler) List(c *gin.Context) {
	cfg := h.holder.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"isEnabled":     cfg.IsEnabled,
		"virtualModels": cfg.VirtualModels,
	})
}

// Create adds a new virtual model with an empty chain.
//
// POST /v1/virtual-models
func (h *ModelsHandler) Create(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.AddVirtualModel(cfg, req.Name)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.ConflictError("A virtual model with that name already exists"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"virtualModels": cfg.VirtualModels})
}

// Rename changes a virtual model's name.
//
// PATCH /v1/virtual-models/:id
func (h *ModelsHandler) Rename(c *gin.Context) {
	var req renameModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	id := c.Param("id")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.RenameVirtualModel(cfg, id, req.Name)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.ConflictError("Unknown virtual model or name already in use"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"virtualModels": cfg.VirtualModels})
}

// Toggle flips a virtual model's enabled flag.
//
// POST /v1/virtual-models/:id/toggle
func (h *ModelsHandler) Toggle(c *gin.Context) {
	id := c.Param("id")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.ToggleVirtualModel(cfg, id)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.NotFoundError("Unknown virtual model"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"virtualModels": cfg.VirtualModels})
}

// Delete removes a virtual model and its chain.
//
// DELETE /v1/virtual-models/:id
func (h *ModelsHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.RemoveVirtualModel(cfg, id)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.NotFoundError("Unknown virtual model"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"virtualModels": cfg.VirtualModels})
}

// AddEntry appends a backend to the end of a virtual model's chain.
//
// POST /v1/virtual-models/:id/entries
func (h *ModelsHandler) AddEntry(c *gin.Context) {
	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	id := c.Param("id")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.AddFallbackEntry(cfg, id, req.Provider, req.ModelID)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.NotFoundError("Unknown virtual model"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"virtualModels": cfg.VirtualModels})
}

// RemoveEntry deletes a chain entry; remaining entries are repriced.
//
// DELETE /v1/virtual-models/:id/entries/:entryId
func (h *ModelsHandler) RemoveEntry(c *gin.Context) {
	id := c.Param("id")
	entryID := c.Param("entryId")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.RemoveFallbackEntry(cfg, id, entryID)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.NotFoundError("Unknown virtual model or entry"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"virtualModels": cfg.VirtualModels})
}

// MoveEntry repositions a chain entry at the given zero-based index.
//
// POST /v1/virtual-models/:id/entries/:entryId/move
func (h *ModelsHandler) MoveEntry(c *gin.Context) {
	var req moveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	id := c.Param("id")
	entryID := c.Param("entryId")
	cfg, ok, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.MoveFallbackEntry(cfg, id, entryID, *req.Index)
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}
	if !ok {
		_ = c.Error(domain.NotFoundError("Unknown virtual model or entry"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"virtualModels": cfg.VirtualModels})
}

// SetEnabled flips the global fallback switch.
//
// PUT /v1/fallback
func (h *ModelsHandler) SetEnabled(c *gin.Context) {
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	cfg, _, err := h.holder.Update(c.Request.Context(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return fallback.SetEnabled(cfg, *req.Enabled), true
	})
	if err != nil {
		_ = c.Error(domain.InternalError("Failed to persist configuration", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"isEnabled": cfg.IsEnabled})
}
