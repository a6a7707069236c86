package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/auth"
	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// UserLookup resolves the user a token was issued to.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// JWT returns a middleware that validates the bearer token, loads its user
// and sets the user's id, role and email in context. The role comes from the
// stored user, not the token.
func JWT(jwtService *auth.JWTService, users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "Access Denied. No token provided.")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(token))
		if err != nil {
			response.Forbidden(c, "Invalid or Expired Token")
			c.Abort()
			return
		}
		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				response.NotFound(c, "User not found")
			} else {
				logger.Error("load token user", zap.Error(err))
				response.Internal(c, "internal server error")
			}
			c.Abort()
			return
		}
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserRole, string(user.Role))
		c.Set(ContextUserEmail, user.Email)
		c.Next()
	}
}
