package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translateError(r.db.WithContext(ctx).Create(task).Error)
}

// FindByID finds a live task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var task models.Task
	if err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted("tasks")).
		Where("tasks.id = ?", id).
		First(&task).Error; err != nil {
		return nil, translateError(err)
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Scopes(database.NotDeleted("tasks")).
		Where("tasks.project_id = ?", filter.ProjectID)

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var tasks []models.Task
	if err := query.
		Order("tasks.created_at DESC").
		Scopes(database.Paginate(filter.Offset, filter.Limit)).
		Find(&tasks).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return tasks, total, nil
}

// Update writes the editable columns of a live task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND is_deleted = ?", task.ID, false).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"assigned_to": task.AssignedTo,
			"status":      task.Status,
			"priority":    task.Priority,
			"due_date":    task.DueDate,
			"updated_at":  task.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a live task deleted
func (r *GormTaskRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(softDeleteColumns(at))
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteByProjects marks every live task of the projects deleted
func (r *GormTaskRepository) SoftDeleteByProjects(ctx context.Context, projectIDs []string, at time.Time) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id IN ? AND is_deleted = ?", projectIDs, false).
		Updates(softDeleteColumns(at))
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// SoftDeleteOrphaned marks live tasks of soft-deleted projects deleted
func (r *GormTaskRepository) SoftDeleteOrphaned(ctx context.Context, at time.Time) (int64, error) {
	deletedProjects := r.db.Model(&models.Project{}).
		Select("id").
		Where("is_deleted = ?", true)

	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("project_id IN (?) AND is_deleted = ?", deletedProjects, false).
		Updates(softDeleteColumns(at))
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func softDeleteColumns(at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_deleted": true,
		"deleted_at": at,
		"updated_at": at,
	}
}
