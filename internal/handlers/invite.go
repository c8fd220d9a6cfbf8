package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// InviteHandler serves invitation endpoints.
type InviteHandler struct {
	inviteService *services.InviteService
	// exposeToken returns the invite token in the create response; never set in production.
	exposeToken bool
}

func NewInviteHandler(inviteService *services.InviteService, exposeToken bool) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
		exposeToken:   exposeToken,
	}
}

// CreateInvite invites an email address with a role
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	type CreateInviteRequest struct {
		Email     string      `json:"email" binding:"required,email"`
		Role      models.Role `json:"role" binding:"required,role"`
		ProjectID *string     `json:"projectId" binding:"omitempty,uuid"`
	}

	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	invite, err := h.inviteService.Create(ctx, middleware.GetCaller(c), services.CreateInviteInput{
		Email:     req.Email,
		Role:      req.Role,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	users, err := h.inviteService.Users(ctx, *invite)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.OKWithMessage("Invite created successfully", dto.ToInviteDTO(*invite, users, h.exposeToken)))
}

// GetInviteStatus returns the public view of a pending invite
func (h *InviteHandler) GetInviteStatus(c *gin.Context) {
	invite, err := h.inviteService.Lookup(c.Request.Context(), c.Query("inviteToken"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToInviteStatusDTO(*invite)))
}

// ListInvites returns invites, optionally filtered by status
func (h *InviteHandler) ListInvites(c *gin.Context) {
	invites, users, err := h.inviteService.List(c.Request.Context(), middleware.GetCaller(c), c.Query("status"))
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]dto.InviteDTO, len(invites))
	for i, invite := range invites {
		items[i] = dto.ToInviteDTO(invite, users, false)
	}

	c.JSON(http.StatusOK, dto.OK(items))
}

// RevokeInvite revokes a pending invite
func (h *InviteHandler) RevokeInvite(c *gin.Context) {
	if err := h.inviteService.Revoke(c.Request.Context(), middleware.GetCaller(c), c.Param("inviteId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Invite revoked successfully", nil))
}

// DeclineInvite lets an invitee decline with their token
func (h *InviteHandler) DeclineInvite(c *gin.Context) {
	type DeclineInviteRequest struct {
		InviteToken string `json:"inviteToken" binding:"required"`
	}

	var req DeclineInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.inviteService.Decline(c.Request.Context(), req.InviteToken); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Invite declined", nil))
}
