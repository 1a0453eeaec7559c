package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(auth services.AuthService, role domain.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/protected", AuthMiddleware(auth), RequireRole(auth, role), func(c *gin.Context) {
		claims, err := services.ClaimsFromContext(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)
	router := newAuthRouter(auth, domain.RoleDriver)

	driverToken, err := auth.GenerateToken("driver-1", domain.RoleDriver)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + driverToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)
	router := newAuthRouter(auth, domain.RoleDispatcher)

	token, err := auth.GenerateToken("driver-1", domain.RoleDriver)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}
