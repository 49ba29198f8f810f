package server

import (
	"github.com/modelrelay/modelrelay/internal/server/middleware"
	v1 "github.com/modelrelay/modelrelay/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Tracing("modelrelay"))
	s.router.Use(middleware.ErrorHandler())

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)
	s.router.Use(limiter.Middleware())

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/v1")
	api.Use(middleware.Auth(s.config.Server.APIKeys))
	{
		dispatchHandler := v1.NewDispatchHandler(s.dispatcher, s.upstream)
		api.POST("/chat/completions", dispatchHandler.CreateCompletion)
		api.POST("/messages", dispatchHandler.CreateCompletion)

		modelsHandler := v1.NewModelsHandler(s.holder)
		api.GET("/virtual-models", modelsHandler.List)
		api.POST("/virtual-models", modelsHandler.Create)
		api.PATCH("/virtual-models/:id", modelsHandler.Rename)
		api.DELETE("/virtual-models/:id", modelsHandler.Delete)
		api.POST("/virtual-models/:id/toggle", modelsHandler.Toggle)
		api.POST("/virtual-models/:id/entries", modelsHandler.AddEntry)
		api.DELETE("/virtual-models/:id/entries/:entryId", modelsHandler.RemoveEntry)
		api.POST("/virtual-models/:id/entries/:entryId/move", modelsHandler.MoveEntry)
		api.PUT("/fallback", modelsHandler.SetEnabled)

		routesHandler := v1.NewRoutesHandler(s.dispatcher, s.cache)
		api.GET("/routes/:name", routesHandler.Get)

		analyticsHandler := v1.NewAnalyticsHandler(s.analytics)
		api.GET("/analytics/usage", analyticsHandler.GetUsage)
		api.GET("/analytics/attempts", analyticsHandler.GetAttempts)

		configHandler := v1.NewConfigHandler(s.config)
		api.GET("/config", configHandler.Get)
	}
}
