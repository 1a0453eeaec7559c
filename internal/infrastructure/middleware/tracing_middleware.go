package middleware

import (
	"time"

	"safedrive/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware adds tracing to HTTP requests
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		tracing.MeasureDuration(ctx, start, "http.request")
		tracing.AddSpanAttributes(ctx,
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.response_size", int64(c.Writer.Size())),
		)

		if c.Writer.Status() >= 400 {
			tracing.SetSpanStatus(ctx, codes.Error, c.Errors.String())
		} else {
			tracing.SetSpanStatus(ctx, codes.Ok, "")
		}
	}
}
