package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
)

func userRouter(env *handlerTestEnv, user *models.User) *gin.Engine {
	r := newTestRouter()
	g := r.Group("/api/users", asUser(user))
	g.GET("", env.users.ListUsers)
	g.GET("/:userId", env.users.GetUser)
	g.PATCH("/:userId/status", env.users.UpdateStatus)
	g.PATCH("/:userId/role", env.users.UpdateRole)
	return r
}

func TestUserHandler_ListUsersPaginated(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := testCreateUser(t, env, "Admin", "admin@example.com", models.RoleAdmin)
	testCreateUser(t, env, "One", "one@example.com", models.RoleStaff)
	testCreateUser(t, env, "Two", "two@example.com", models.RoleStaff)

	w, response := doRequest(t, userRouter(env, admin), http.MethodGet, "/api/users?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []dto.UserDTO
	decodeData(t, response, &users)
	assert.Len(t, users, 1)
	require.NotNil(t, response.Pagination)
	assert.Equal(t, int64(3), response.Pagination.Total)
	assert.Equal(t, 2, response.Pagination.TotalPages)
	assert.True(t, response.Pagination.HasPrevPage)
	assert.False(t, response.Pagination.HasNextPage)
}

func TestUserHandler_GetUser(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := testCreateUser(t, env, "Admin", "admin@example.com", models.RoleAdmin)
	staff := testCreateUser(t, env, "Staff", "staff@example.com", models.RoleStaff)

	w, _ := doRequest(t, userRouter(env, staff), http.MethodGet, "/api/users/"+staff.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, userRouter(env, staff), http.MethodGet, "/api/users/"+admin.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, userRouter(env, admin), http.MethodGet, "/api/users/"+staff.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserHandler_UpdateStatus(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := testCreateUser(t, env, "Admin", "admin@example.com", models.RoleAdmin)
	staff := testCreateUser(t, env, "Staff", "staff@example.com", models.RoleStaff)
	r := userRouter(env, admin)

	w, response := doRequest(t, r, http.MethodPatch, "/api/users/"+admin.ID+"/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot deactivate your own account", response.Message)

	w, response = doRequest(t, r, http.MethodPatch, "/api/users/"+staff.ID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user dto.UserDTO
	decodeData(t, response, &user)
	assert.Equal(t, models.UserStatusInactive, user.Status)

	w, response = doRequest(t, r, http.MethodPatch, "/api/users/"+staff.ID+"/status", map[string]string{"status": "ACTIVE"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, response, &user)
	assert.Equal(t, models.UserStatusActive, user.Status)
}

func TestUserHandler_UpdateRole(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := testCreateUser(t, env, "Admin", "admin@example.com", models.RoleAdmin)
	staff := testCreateUser(t, env, "Staff", "staff@example.com", models.RoleStaff)

	w, response := doRequest(t, userRouter(env, admin), http.MethodPatch, "/api/users/"+staff.ID+"/role", map[string]string{"role": "MANAGER"})
	require.Equal(t, http.StatusOK, w.Code)
	var user dto.UserDTO
	decodeData(t, response, &user)
	assert.Equal(t, models.RoleManager, user.Role)

	w, response = doRequest(t, userRouter(env, admin), http.MethodPatch, "/api/users/"+staff.ID+"/role", map[string]string{"role": "OWNER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", response.Message)
}
