package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      models.Role       `json:"role"`
	Status    models.UserStatus `json:"status,omitempty"`
	LastLogin *time.Time        `json:"lastLogin,omitempty"`
	InvitedAt *time.Time        `json:"invitedAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// UserRefDTO is the populated form of a user reference.
type UserRefDTO struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ProjectID   string              `json:"projectId"`
	AssignedTo  *UserRefDTO         `json:"assignedTo,omitempty"`
	CreatedBy   UserRefDTO          `json:"createdBy"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// UserDirectory resolves user references that were loaded in bulk.
type UserDirectory map[string]models.User

// NewUserDirectory indexes users by ID.
func NewUserDirectory(users []models.User) UserDirectory {
	dir := make(UserDirectory, len(users))
	for _, u := range users {
		dir[u.ID] = u
	}
	return dir
}

// Ref returns the populated reference for id, or a bare id when the user is unknown.
func (d UserDirectory) Ref(id string) UserRefDTO {
	if u, ok := d[id]; ok {
		return ToUserRefDTO(u)
	}
	return UserRefDTO{ID: id}
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		LastLogin: user.LastLogin,
		InvitedAt: user.InvitedAt,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserRefDTO converts a User model to its reference form
func ToUserRefDTO(user models.User) UserRefDTO {
	return UserRefDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	items := make([]UserDTO, len(users))
	for i, u := range users {
		items[i] = ToUserDTO(u)
	}
	return items
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task, users UserDirectory) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		ProjectID:   task.ProjectID,
		CreatedBy:   users.Ref(task.CreatedBy),
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.AssignedTo != nil {
		assignee := users.Ref(*task.AssignedTo)
		dto.AssignedTo = &assignee
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task, users UserDirectory) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, users)
	}
	return items
}

// TaskUserIDs collects every user referenced by tasks
func TaskUserIDs(tasks []models.Task) []string {
	ids := make([]string, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.CreatedBy)
		if t.AssignedTo != nil {
			ids = append(ids, *t.AssignedTo)
		}
	}
	return models.UniqueStrings(ids)
}
