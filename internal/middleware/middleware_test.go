package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"github.com/yukikurage/project-management-api/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Register()
}

func newRouter(exposeInternal bool) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(logger.Discard(), exposeInternal), Recovery())
	router.NoRoute(NotFoundHandler)
	return router
}

func perform(router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, dto.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body dto.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRequireAuth(t *testing.T) {
	tokens := security.NewTokenManager(testutil.TestJWTSecret, time.Minute, time.Hour)
	user := &models.User{ID: "0b8f5a56-93a4-4c53-9d0d-6d6f0f2f8a11", Email: "a@x.com", Role: models.RoleManager}
	pair, err := tokens.Issue(user)
	require.NoError(t, err)

	router := newRouter(false)
	router.GET("/me", RequireAuth(tokens), func(c *gin.Context) {
		caller := GetCaller(c)
		c.JSON(http.StatusOK, dto.OK(gin.H{"id": caller.UserID, "role": caller.Role}))
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w, body := perform(router, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, user.ID, body.Data.(map[string]interface{})["id"])
		assert.Equal(t, "MANAGER", body.Data.(map[string]interface{})["role"])
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: pair.AccessToken})
		w, _ := perform(router, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w, body := perform(router, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, body.Success)
		assert.Equal(t, "No token provided", body.Message)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		w, body := perform(router, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", body.Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w, body := perform(router, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", body.Message)
	})
}

func TestGetCallerAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, GetCaller(c).Authenticated())
}

func TestErrorHandlerMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"api error", apierrors.Forbidden("Nope"), http.StatusForbidden, "Nope"},
		{"invalid id", fmt.Errorf("lookup: %w", repository.ErrInvalidID), http.StatusBadRequest, "Invalid ID format"},
		{"not found", repository.ErrNotFound, http.StatusNotFound, "Resource not found"},
		{"duplicate", repository.ErrDuplicate, http.StatusConflict, "Resource already exists"},
		{"token expired", security.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
		{"token invalid", security.ErrTokenInvalid, http.StatusUnauthorized, "Invalid token"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(false)
			router.GET("/", func(c *gin.Context) { c.Error(tt.err) })

			w, body := perform(router, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
			assert.Empty(t, body.Error)
		})
	}
}

func TestErrorHandlerExposesInternalOutsideProduction(t *testing.T) {
	router := newRouter(true)
	router.GET("/", func(c *gin.Context) { c.Error(errors.New("db unreachable")) })

	w, body := perform(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db unreachable", body.Error)
}

func TestErrorHandlerValidation(t *testing.T) {
	type request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,strongpassword"`
	}

	router := newRouter(false)
	router.POST("/", func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err).SetType(gin.ErrorTypeBind)
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"bad","password":"weak"}`))
	req.Header.Set("Content-Type", "application/json")
	w, body := perform(router, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Len(t, body.Errors, 2)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	w, body = perform(router, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body.Message)
}

func TestRecoveryAndNotFound(t *testing.T) {
	router := newRouter(false)
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w, body := perform(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body.Message)

	w, body = perform(router, httptest.NewRequest(http.MethodDelete, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route DELETE /missing not found", body.Message)
}

func TestRequireUUIDParam(t *testing.T) {
	router := newRouter(false)
	router.GET("/projects/:projectId", RequireUUIDParam("projectId"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w, body := perform(router, httptest.NewRequest(http.MethodGet, "/projects/123", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid ID format", body.Message)

	w, _ = perform(router, httptest.NewRequest(http.MethodGet, "/projects/0b8f5a56-93a4-4c53-9d0d-6d6f0f2f8a11", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.seen[key]++
	return l.seen[key] <= l.limit, 30 * time.Second, nil
}

func TestLoginRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 2, seen: map[string]int{}}

	router := newRouter(false)
	router.POST("/login", LoginRateLimit(limiter, logger.Discard()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		w, _ := perform(router, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w, body := perform(router, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "Too many login attempts. Please try again later.", body.Message)

	limiter.err = errors.New("redis down")
	w, _ = perform(router, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
