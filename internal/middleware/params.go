package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/repository"
)

// RequireUUIDParam rejects requests whose named path parameters are not valid ids
func RequireUUIDParam(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			if err := repository.ValidateID(c.Param(name)); err != nil {
				c.Error(apierrors.ErrInvalidID)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
