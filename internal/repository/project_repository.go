package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Order("project_members.joined_at ASC")
}

// Create creates the project and its initial members in one transaction
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := project.TeamMembers
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}

		for i := range members {
			members[i].ProjectID = project.ID
		}
		if len(members) > 0 {
			if err := tx.Create(&members).Error; err != nil {
				return err
			}
		}
		project.TeamMembers = members
		return nil
	}))
}

// FindByID finds a project by ID, including soft-deleted ones
func (r *GormProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("TeamMembers", preloadMembers).
		Where("id = ?", id).
		First(&project).Error; err != nil {
		return nil, translateError(err)
	}
	return &project, nil
}

// ListForUser lists live projects the user participates in, newest first
func (r *GormProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	memberOf := r.db.Model(&models.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", userID)

	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted("projects")).
		Where("projects.created_by = ? OR projects.admin_id = ? OR projects.id IN (?)", userID, userID, memberOf).
		Preload("TeamMembers", preloadMembers).
		Order("projects.created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, translateError(err)
	}
	return projects, nil
}

// Update writes the editable columns of a live project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND is_deleted = ?", project.ID, false).
		Updates(map[string]interface{}{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"admin_id":    project.AdminID,
			"updated_at":  project.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// SoftDelete flips is_deleted only on a live project
func (r *GormProjectRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(softDeleteColumns(at))
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// AddMember inserts a team member; the composite primary key rejects duplicates
func (r *GormProjectRepository) AddMember(ctx context.Context, projectID string, member models.ProjectMember) error {
	member.ProjectID = projectID
	return translateError(r.db.WithContext(ctx).Create(&member).Error)
}

// RemoveMember deletes the membership row if present
func (r *GormProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	return translateError(r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error)
}
