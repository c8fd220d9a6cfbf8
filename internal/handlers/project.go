package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// ProjectHandler serves project and team member endpoints.
type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject creates a project administered by the caller
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Name        string               `json:"name" binding:"required,min=3,max=100"`
		Description string               `json:"description" binding:"max=500"`
		Status      models.ProjectStatus `json:"status" binding:"omitempty,projectstatus"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetCaller(c), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusCreated, "Project created successfully", project)
}

// ListProjects returns the projects the caller participates in
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	projects, err := h.projectService.List(ctx, middleware.GetCaller(c))
	if err != nil {
		c.Error(err)
		return
	}

	users, err := h.projectService.Users(ctx, projects...)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToProjectDTOs(projects, users)))
}

// GetProject returns a single project
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), middleware.GetCaller(c), c.Param("projectId"))
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "", project)
}

// UpdateProject changes the fields that were sent
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	type UpdateProjectRequest struct {
		Name        *string               `json:"name" binding:"omitempty,min=3,max=100"`
		Description *string               `json:"description" binding:"omitempty,max=500"`
		Status      *models.ProjectStatus `json:"status" binding:"omitempty,projectstatus"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetCaller(c), c.Param("projectId"), services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "Project updated successfully", project)
}

// DeleteProject soft-deletes a project and its tasks
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.Delete(c.Request.Context(), middleware.GetCaller(c), c.Param("projectId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Project deleted successfully", nil))
}

// AddTeamMember adds a user to the project team
func (h *ProjectHandler) AddTeamMember(c *gin.Context) {
	type AddTeamMemberRequest struct {
		UserID string            `json:"userId" binding:"required,uuid"`
		Role   models.MemberRole `json:"role" binding:"omitempty,memberrole"`
	}

	var req AddTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.projectService.AddMember(c.Request.Context(), middleware.GetCaller(c), c.Param("projectId"), req.UserID, req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "Team member added successfully", project)
}

// RemoveTeamMember removes a user from the project team
func (h *ProjectHandler) RemoveTeamMember(c *gin.Context) {
	project, err := h.projectService.RemoveMember(c.Request.Context(), middleware.GetCaller(c), c.Param("projectId"), c.Param("memberId"))
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "Team member removed successfully", project)
}

func (h *ProjectHandler) respond(c *gin.Context, status int, message string, project *models.Project) {
	users, err := h.projectService.Users(c.Request.Context(), *project)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(status, dto.OKWithMessage(message, dto.ToProjectDTO(*project, users)))
}
