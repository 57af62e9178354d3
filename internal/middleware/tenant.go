package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// TenantGuard ensures the authenticated user is attached to a school and,
// when the route carries a schoolId parameter, that it matches the token.
func TenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.HasSchool() {
			response.Error(c, appErrors.ErrNoSchool)
			c.Abort()
			return
		}

		if schoolID := c.Param("schoolId"); schoolID != "" && schoolID != claims.SchoolID {
			response.Error(c, appErrors.ErrCrossTenant)
			c.Abort()
			return
		}

		c.Next()
	}
}
