package middleware

import (
	"strings"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/services"
	apperrors "safedrive/pkg/errors"

	"github.com/gin-gonic/gin"
)

const claimsContextKey = "claims"

// AuthMiddleware requires a valid bearer token and stores its claims on both
// the gin context and the request context.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, apperrors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, apperrors.NewUnauthorizedError(err.Error()))
			return
		}

		c.Set(claimsContextKey, claims)
		c.Request = c.Request.WithContext(services.ContextWithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireRole rejects callers whose role ranks below required. It must run
// after AuthMiddleware.
func RequireRole(authService services.AuthService, required domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := services.ClaimsFromContext(c.Request.Context())
		if err != nil {
			abortWithError(c, apperrors.NewUnauthorizedError("authentication required"))
			return
		}
		if err := authService.CheckRole(claims, required); err != nil {
			abortWithError(c, apperrors.NewForbiddenError("insufficient permissions"))
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}
