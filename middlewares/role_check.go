package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// RequireRole -> hanya role yang disebut yang boleh lewat
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}
		if !allowed[role] {
			utils.RespondError(c, http.StatusForbidden, errors.New("role "+role+" is not allowed to do this"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OutletScope makes sure the :outlet_id in the path is the caller's own outlet.
// OWNER may act on every outlet.
func OutletScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		outletID := c.Param("outlet_id")
		if outletID == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("outlet id is required"))
			c.Abort()
			return
		}
		if c.GetString(CtxRole) != utils.RoleOwner && c.GetString(CtxOutletID) != outletID {
			utils.RespondError(c, http.StatusForbidden, errors.New("no access to outlet "+outletID))
			c.Abort()
			return
		}
		c.Next()
	}
}
