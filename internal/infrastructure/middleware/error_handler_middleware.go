package middleware

import (
	"time"

	"safedrive/pkg/errors"
	"safedrive/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		if appErr := errors.GetAppError(err); appErr != nil {
			logger.Errorw("Application error",
				"code", appErr.Code,
				"message", appErr.Message,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"context", appErr.Context,
				"cause", appErr.Cause,
			)

			body := gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			}
			if len(appErr.Context) > 0 {
				body["details"] = appErr.Context
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Errorw("Unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)

		internal := errors.NewInternalError("Internal server error")
		c.JSON(internal.HTTPStatus, gin.H{
			"error":   string(internal.Code),
			"message": internal.Message,
		})
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("Panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				internal := errors.NewInternalError("Internal server error")
				c.AbortWithStatusJSON(internal.HTTPStatus, gin.H{
					"error":   string(internal.Code),
					"message": internal.Message,
				})
			}
		}()

		c.Next()
	}
}

// RequestIDHeader carries the request id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id, stores it in the request
// context and logs one line per request.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	ctxLogger := logger.NewContextLogger(log)
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		ctxLogger.WithContext(c.Request.Context()).Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
