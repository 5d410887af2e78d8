package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

// RequireRoles lets the request through only when the caller's global role is
// one of roles. Must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// StoredRole replaces the token's role with the role currently stored for the
// caller, so a role change applies before the token expires. Must run after JWT.
func StoredRole(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		role, err := authService.RoleOf(c.Request.Context(), claims.UserID)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrNotFound) {
				err = appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		if role != claims.Role {
			fresh := *claims
			fresh.Role = role
			c.Set(ContextUserKey, &fresh)
		}
		c.Next()
	}
}
