package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/security"
)

// RequireAuth checks the access token from the Authorization header or the accessToken cookie
func RequireAuth(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Error(apierrors.Unauthorized("No token provided"))
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token, security.TokenTypeAccess)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyEmail, claims.Email)
		c.Set(constants.ContextKeyRole, claims.Role)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if cookie, err := c.Cookie(constants.AccessTokenCookieName); err == nil {
		return cookie
	}

	return ""
}

// GetCaller retrieves the authenticated identity from context.
// The zero Caller is returned for anonymous requests.
func GetCaller(c *gin.Context) authz.Caller {
	userID := c.GetString(constants.ContextKeyUserID)
	if userID == "" {
		return authz.Caller{}
	}

	var role models.Role
	if v, ok := c.Get(constants.ContextKeyRole); ok {
		role, _ = v.(models.Role)
	}
	return authz.Caller{UserID: userID, Role: role}
}
