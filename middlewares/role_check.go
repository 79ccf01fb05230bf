package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			utils.RespondError(c, http.StatusUnauthorized, utils.CodeTokenMissing, errors.New("authentication required"))
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			utils.RespondError(c, http.StatusForbidden, utils.CodeInsufficientPermissions, errors.New("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
