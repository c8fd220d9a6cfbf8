package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the live tasks of a project
// Can filter by status, priority and assignedTo
func (h *TaskHandler) ListTasks(c *gin.Context) {
	type ListTasksQuery struct {
		Status     models.TaskStatus   `form:"status" binding:"omitempty,taskstatus"`
		Priority   models.TaskPriority `form:"priority" binding:"omitempty,taskpriority"`
		AssignedTo string              `form:"assignedTo" binding:"omitempty,uuid"`
	}

	var query ListTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	input := services.ListTasksInput{
		ProjectID:  c.Param("projectId"),
		Pagination: utils.GetPaginationParams(c),
	}
	if query.Status != "" {
		input.Status = &query.Status
	}
	if query.Priority != "" {
		input.Priority = &query.Priority
	}
	if query.AssignedTo != "" {
		input.AssignedTo = &query.AssignedTo
	}

	ctx := c.Request.Context()
	tasks, pagination, err := h.taskService.List(ctx, middleware.GetCaller(c), input)
	if err != nil {
		c.Error(err)
		return
	}

	users, err := h.taskService.Users(ctx, tasks...)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success:    true,
		Data:       dto.ToTaskDTOs(tasks, users),
		Pagination: pagination,
	})
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.Get(c.Request.Context(), middleware.GetCaller(c), c.Param("taskId"))
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "", task)
}

// CreateTask creates a new task in the project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,min=3,max=200"`
		Description string              `json:"description" binding:"max=2000"`
		AssignedTo  *string             `json:"assignedTo" binding:"omitempty,uuid"`
		Status      models.TaskStatus   `json:"status" binding:"omitempty,taskstatus"`
		Priority    models.TaskPriority `json:"priority" binding:"omitempty,taskpriority"`
		DueDate     *time.Time          `json:"dueDate"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.GetCaller(c), services.CreateTaskInput{
		ProjectID:   c.Param("projectId"),
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusCreated, "Task created successfully", task)
}

// UpdateTask updates an existing task
// assignedTo and dueDate may be sent as null to clear them
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title       *string              `json:"title" binding:"omitempty,min=3,max=200"`
		Description *string              `json:"description" binding:"omitempty,max=2000"`
		AssignedTo  *string              `json:"assignedTo" binding:"omitempty,uuid"`
		Status      *models.TaskStatus   `json:"status" binding:"omitempty,taskstatus"`
		Priority    *models.TaskPriority `json:"priority" binding:"omitempty,taskpriority"`
		DueDate     *time.Time           `json:"dueDate"`
	}

	raw, err := c.GetRawData()
	if err != nil {
		bindError(c, err)
		return
	}

	// Parse raw JSON to detect which fields were sent as null
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		bindError(c, err)
		return
	}

	var req UpdateTaskRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		bindError(c, err)
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.GetCaller(c), c.Param("taskId"), services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		Unassign:     isExplicitNull(fields, "assignedTo"),
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: isExplicitNull(fields, "dueDate"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	h.respond(c, http.StatusOK, "Task updated successfully", task)
}

// DeleteTask soft-deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.Delete(c.Request.Context(), middleware.GetCaller(c), c.Param("taskId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Task deleted successfully", nil))
}

// GenerateTasks drafts task suggestions for the project from text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required,max=10000"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), middleware.GetCaller(c), services.GenerateTasksInput{
		ProjectID: c.Param("projectId"),
		Text:      req.Text,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(gin.H{"tasks": tasks}))
}

func (h *TaskHandler) respond(c *gin.Context, status int, message string, task *models.Task) {
	users, err := h.taskService.Users(c.Request.Context(), *task)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(status, dto.OKWithMessage(message, dto.ToTaskDTO(*task, users)))
}
