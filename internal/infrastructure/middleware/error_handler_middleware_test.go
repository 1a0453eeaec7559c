package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "safedrive/pkg/errors"
	"safedrive/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()

	router := gin.New()
	router.Use(RecoveryMiddleware(logger), ErrorHandlerMiddleware(logger))
	router.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.NewInvalidInputError("bad speed").WithContext("field", "speed"))
	})
	router.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/app", http.StatusBadRequest, `"INVALID_INPUT"`},
		{"/plain", http.StatusInternalServerError, `"INTERNAL_ERROR"`},
		{"/panic", http.StatusInternalServerError, `"INTERNAL_ERROR"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequestLogger_TagsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	var seen string
	router := gin.New()
	router.Use(RequestLogger(zap.New(core).Sugar()))
	router.GET("/api/ping", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	if assert.Equal(t, 1, logs.Len()) {
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "req-123", fields["request_id"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
}
