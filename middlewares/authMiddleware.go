package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token when present and threads the
// session identity (username, role) through the request context. Requests
// without a token pass through unauthenticated; the engine's own admin
// check rejects mutations from them.
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
		ctx = utils.SetUsernameInContext(ctx, claim.Username)
		ctx = utils.SetUserRoleInContext(ctx, claim.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Set("username", claim.Username)
		c.Set("role", claim.Role)
		c.Next()
	}
}
