package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, pagination, err := h.userService.List(c.Request.Context(), middleware.GetCaller(c), utils.GetPaginationParams(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success:    true,
		Data:       dto.ToUserDTOs(users),
		Pagination: pagination,
	})
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), middleware.GetCaller(c), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToUserDTO(*user)))
}

// UpdateStatus sets a user's status; without a body the user is deactivated.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	type UpdateStatusRequest struct {
		Status models.UserStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	}

	var req UpdateStatusRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	if req.Status == "" {
		req.Status = models.UserStatusInactive
	}

	user, err := h.userService.UpdateStatus(c.Request.Context(), middleware.GetCaller(c), c.Param("userId"), req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("User status updated successfully", dto.ToUserDTO(*user)))
}

// UpdateRole changes a user's system role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	type UpdateRoleRequest struct {
		Role models.Role `json:"role" binding:"required,role"`
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), middleware.GetCaller(c), c.Param("userId"), req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("User role updated successfully", dto.ToUserDTO(*user)))
}
