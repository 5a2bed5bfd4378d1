package middlewares

import (
	"net/http"
	"strings"

	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates a bearer token when one is present and attaches
// the claims to the request context. Requests without a token pass through;
// RequireSession gates the endpoints that need one.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetOrgIdInContext(ctx, claim.OrgId)
		ctx = utils.SetIsAdminInContext(ctx, claim.Role == models.UserRoleAdmin)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests that did not carry a valid token.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgId, ok := utils.GetOrgIdFromContext(c.Request.Context()); !ok || orgId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
