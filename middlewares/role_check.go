package middlewares

import (
	"fmt"
	"net/http"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
)

// RequireRoles rejects callers whose JWT role is not in the allowed set.
// Admins pass every check.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if userRole == models.RoleAdmin {
			c.Next()
			return
		}

		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, fmt.Errorf("insufficient role"))
		c.Abort()
	}
}
