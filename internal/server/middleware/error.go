package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/platform/logger"
)

// ErrorHandler renders errors attached by handlers as RFC 9457 problem
// documents.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *domain.Problem
		if errors.As(err, &problem) {
			// if there is an internal log attached, log it
			if problem.Log != nil {
				logger.Error("Request failed", zap.Error(problem.Log), zap.String("path", c.Request.URL.Path))
			}

			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		// unknown error, catch-all 500
		logger.Error("Unhandled error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, domain.NewProblem(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
