package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
)

var (
	ErrTaskNotFound           = apierrors.NotFound("Task not found")
	ErrTitleRequired          = apierrors.Validation("Task title must be at least 3 characters")
	ErrInvalidTaskStatus      = apierrors.Validation("Invalid task status")
	ErrInvalidTaskPriority    = apierrors.Validation("Invalid task priority")
	ErrInvalidTaskAssignee    = apierrors.Validation("Assignee must be a member of the project")
	ErrAIServiceNotConfigured = apierrors.ServiceUnavailable("AI service is not configured")
	ErrAINoTasksGenerated     = apierrors.Validation("AI did not generate any tasks")
	ErrAINoValidTasks         = apierrors.Validation("No valid tasks could be created from AI output")
	ErrAITextRequired         = apierrors.Validation("Text is required")
)

const minTaskTitleLength = 3

// TaskService handles task business logic
type TaskService struct {
	tasks     repository.TaskRepository
	projects  *ProjectService
	users     repository.UserRepository
	aiService *AIService
	log       logrus.FieldLogger
	now       Clock
}

// NewTaskService creates a new TaskService. aiService may be nil when no API key is configured.
func NewTaskService(repos *repository.Repositories, projects *ProjectService, aiService *AIService, log logrus.FieldLogger, clock Clock) *TaskService {
	return &TaskService{
		tasks:     repos.Tasks,
		projects:  projects,
		users:     repos.Users,
		aiService: aiService,
		log:       log,
		now:       clockOrNow(clock),
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID  string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *string
	Pagination utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	AssignedTo  *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	AssignedTo   *string
	Unassign     bool
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// List returns live tasks of a project the caller can read
func (s *TaskService) List(ctx context.Context, caller authz.Caller, input ListTasksInput) ([]models.Task, *dto.Pagination, error) {
	project, err := s.projects.loadLive(ctx, input.ProjectID, ErrProjectNotFound)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Authorize(caller, authz.ActionTaskRead, authz.Resource{Project: project}).Err(); err != nil {
		return nil, nil, err
	}

	filter := repository.TaskFilter{
		ProjectID:  project.ID,
		Status:     input.Status,
		Priority:   input.Priority,
		AssignedTo: input.AssignedTo,
		Offset:     input.Pagination.Offset,
		Limit:      input.Pagination.Limit,
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, dto.NewPagination(total, input.Pagination.Page, input.Pagination.Limit), nil
}

// Get returns a task the caller can read
func (s *TaskService) Get(ctx context.Context, caller authz.Caller, taskID string) (*models.Task, error) {
	task, _, err := s.load(ctx, caller, taskID, authz.ActionTaskRead)
	return task, err
}

// Create creates a new task in a project the caller can read
func (s *TaskService) Create(ctx context.Context, caller authz.Caller, input CreateTaskInput) (*models.Task, error) {
	project, err := s.projects.loadLive(ctx, input.ProjectID, ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, authz.ActionTaskCreate, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if len(title) < minTaskTitleLength {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}
	if input.AssignedTo != nil && !project.HasParticipant(*input.AssignedTo) {
		return nil, ErrInvalidTaskAssignee
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		ProjectID:   project.ID,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   caller.UserID,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// Update updates an existing task
func (s *TaskService) Update(ctx context.Context, caller authz.Caller, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, project, err := s.load(ctx, caller, taskID, authz.ActionTaskUpdate)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) < minTaskTitleLength {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidTaskPriority
		}
		task.Priority = *input.Priority
	}
	if input.Unassign {
		task.AssignedTo = nil
	} else if input.AssignedTo != nil {
		if !project.HasParticipant(*input.AssignedTo) {
			return nil, ErrInvalidTaskAssignee
		}
		task.AssignedTo = input.AssignedTo
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// Delete soft-deletes a task
func (s *TaskService) Delete(ctx context.Context, caller authz.Caller, taskID string) error {
	task, _, err := s.load(ctx, caller, taskID, authz.ActionTaskDelete)
	if err != nil {
		return err
	}

	if err := s.tasks.SoftDelete(ctx, task.ID, s.now()); err != nil {
		return findErr(err, ErrTaskNotFound, "task")
	}
	return nil
}

// Users loads the creators and assignees of tasks for response population.
func (s *TaskService) Users(ctx context.Context, tasks ...models.Task) (dto.UserDirectory, error) {
	return loadUsers(ctx, s.users, dto.TaskUserIDs(tasks))
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	ProjectID string
	Text      string
}

// GenerateTasks drafts tasks for a project from free text. Nothing is persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, caller authz.Caller, input GenerateTasksInput) ([]GeneratedTask, error) {
	project, err := s.projects.loadLive(ctx, input.ProjectID, ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, authz.ActionTaskCreate, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}

	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrAITextRequired
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, apierrors.Validation(fmt.Sprintf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks))
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.TaskPriorityMedium
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// load fetches a live task and its live project, then authorizes action on them.
func (s *TaskService) load(ctx context.Context, caller authz.Caller, taskID string, action authz.Action) (*models.Task, *models.Project, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, findErr(err, ErrTaskNotFound, "task")
	}

	project, err := s.projects.loadLive(ctx, task.ProjectID, ErrTaskNotFound)
	if err != nil {
		return nil, nil, err
	}

	res := authz.Resource{Project: project, Task: task}
	if err := authz.Authorize(caller, action, res).Err(); err != nil {
		return nil, nil, err
	}
	return task, project, nil
}
