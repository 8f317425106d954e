// Package middleware provides HTTP middleware for the API gateway.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/affilink/affiliate-backend/internal/common/response"
	"github.com/affilink/affiliate-backend/internal/models"
)

// RequireRoles rejects requests whose token role is not in the given
// set. The role was resolved when the token was issued.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		roleSet[string(r)] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Unauthorized(c, "Vui lòng đăng nhập")
			c.Abort()
			return
		}

		if _, ok := roleSet[role]; !ok {
			response.Forbidden(c, "Không đủ quyền")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin requires the admin role.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// RequireAffiliate requires an affiliate-side role.
func RequireAffiliate() gin.HandlerFunc {
	return RequireRoles(models.RoleAffiliate, models.RoleKolVip)
}
