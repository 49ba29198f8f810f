package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/analytics"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/server/validator"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     *zap.Logger
	dispatcher *fallback.Dispatcher
	holder     *fallback.ConfigHolder
	upstream   ports.Upstream
	cache      ports.RouteCache
	analytics  analytics.Service
}

func New(
	cfg *config.Config,
	logger *zap.Logger,
	dispatcher *fallback.Dispatcher,
	holder *fallback.ConfigHolder,
	upstream ports.Upstream,
	cache ports.RouteCache,
	analyticsSvc analytics.Service,
) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router:     engine,
		config:     cfg,
		logger:     logger,
		dispatcher: dispatcher,
		holder:     holder,
		upstream:   upstream,
		cache:      cache,
		analytics:  analyticsSvc,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
