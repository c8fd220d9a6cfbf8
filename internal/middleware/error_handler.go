package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/validation"
)

// ErrorHandler renders the last error pushed with c.Error as the JSON envelope.
// Internal error text is included only when exposeInternal is set.
func ErrorHandler(log logrus.FieldLogger, exposeInternal bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ginErr := c.Errors.Last()
		status, body := render(ginErr)

		if status >= http.StatusInternalServerError {
			log.WithError(ginErr.Err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("Request failed")
			report(c, ginErr.Err)

			if exposeInternal && body.Error == "" {
				body.Error = ginErr.Err.Error()
			}
		}

		c.AbortWithStatusJSON(status, body)
	}
}

func render(ginErr *gin.Error) (int, dto.Response) {
	err := ginErr.Err

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, dto.Response{Message: apiErr.Message, Errors: apiErr.Details}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, dto.Response{Message: "Validation failed", Errors: validation.FieldErrors(err)}
	}
	if ginErr.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, dto.Response{Message: apierrors.ErrInvalidInput.Message}
	}

	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return http.StatusBadRequest, dto.Response{Message: apierrors.ErrInvalidID.Message}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, dto.Response{Message: apierrors.ErrNotFound.Message}
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, dto.Response{Message: apierrors.ErrAlreadyExists.Message}
	case errors.Is(err, security.ErrTokenExpired):
		return http.StatusUnauthorized, dto.Response{Message: apierrors.ErrTokenExpired.Message}
	case errors.Is(err, security.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.Response{Message: apierrors.ErrTokenInvalid.Message}
	}

	return http.StatusInternalServerError, dto.Response{Message: apierrors.ErrInternalError.Message}
}

func report(c *gin.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", c.Request.Method)
		scope.SetTag("path", c.FullPath())
		if userID := c.GetString(constants.ContextKeyUserID); userID != "" {
			scope.SetUser(sentry.User{ID: userID})
		}
		sentry.CaptureException(err)
	})
}

// Recovery converts panics into the 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		c.Error(fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.Response{
		Message: fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path),
	})
}
