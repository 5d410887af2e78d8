package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

// ContextMembershipKey stores the caller's membership of the routed class.
const ContextMembershipKey = "classMembership"

// ClassParam is the route parameter naming the class.
const ClassParam = "classId"

// ClassMember requires the authenticated caller to belong to the class named
// by the :classId route parameter. Must run after JWT.
func ClassMember(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.Get(ContextUserKey)
		identity, _ := claims.(*models.JWTClaims)

		member, err := authService.AuthorizeForClass(c.Request.Context(), identity, c.Param(ClassParam))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if member == nil {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(ContextMembershipKey, member)
		c.Next()
	}
}
