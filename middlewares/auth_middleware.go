package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MENO-App/BE-MENO/models"
	"github.com/MENO-App/BE-MENO/utils"
)

const (
	ctxIdentityID = "identityID"
	ctxEmail      = "email"
	ctxRoles      = "roles"
)

// AuthMiddleware accepts a Bearer token, or an access_token query parameter
// for browser websocket upgrades that cannot set headers.
func AuthMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header must be a Bearer token"})
				return
			}
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		} else {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header required"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		roles := make([]string, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			roles = append(roles, strings.ToUpper(strings.TrimSpace(r)))
		}
		c.Set(ctxIdentityID, uuid.MustParse(claims.Subject))
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRoles, roles)
		c.Next()
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
// It must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, r := range roles {
			if HasRole(c, r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient role"})
	}
}

// IdentityID is the token subject of the authenticated caller.
func IdentityID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxIdentityID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func Email(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

func Roles(c *gin.Context) []string {
	return c.GetStringSlice(ctxRoles)
}

func HasRole(c *gin.Context, role models.Role) bool {
	for _, r := range Roles(c) {
		if r == string(role) {
			return true
		}
	}
	return false
}
