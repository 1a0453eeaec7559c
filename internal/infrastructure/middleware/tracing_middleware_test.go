package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"safedrive/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	router := gin.New()
	router.Use(TracingMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("detector down"))
		c.String(http.StatusInternalServerError, "fail")
	})
	return router, recorder
}

func hasKey(attrs []attribute.KeyValue, key attribute.Key) bool {
	for _, kv := range attrs {
		if kv.Key == key {
			return true
		}
	}
	return false
}

func TestTracingMiddleware_RecordsRequest(t *testing.T) {
	router, recorder := newTracedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "http.GET", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.Contains(t, spans[0].Attributes(), attribute.String("operation", "http.request"))
	assert.True(t, hasKey(spans[0].Attributes(), tracing.DurationKey))
}

func TestTracingMiddleware_MarksFailures(t *testing.T) {
	router, recorder := newTracedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "detector down")
}
