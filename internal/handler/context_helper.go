package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func membershipFromContext(c *gin.Context) *models.Membership {
	value, exists := c.Get(middleware.ContextMembershipKey)
	if !exists {
		return nil
	}
	member, ok := value.(*models.Membership)
	if !ok {
		return nil
	}
	return member
}

// requireClaims writes 401 and returns nil when the request carries no identity.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// requireMember writes 403 and returns nil when the class guard did not run.
func requireMember(c *gin.Context) *models.Membership {
	member := membershipFromContext(c)
	if member == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not a member of this class"))
	}
	return member
}
