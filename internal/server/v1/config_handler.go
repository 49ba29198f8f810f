package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelrelay/modelrelay/internal/config"
)

type ConfigHandler struct {
	config *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// Get returns the current application configuration with credentials
// redacted.
//
// GET /v1/config
func (h *ConfigHandler) Get(c *gin.Context) {
	redacted := *h.config
	redacted.Server.APIKeys = nil
	redacted.Redis.Password = ""
	redacted.Providers = make([]config.ProviderConfig, len(h.config.Providers))
	for i, p := range h.config.Providers {
		p.APIKey = ""
		redacted.Providers[i] = p
	}

	c.JSON(http.StatusOK, gin.H{"config": redacted})
}
