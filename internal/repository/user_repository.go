package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByIDs returns the users that exist among ids
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByInviteID finds the user created from an invite
func (r *GormUserRepository) FindByInviteID(ctx context.Context, inviteID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("invite_id = ?", inviteID).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// List returns a page of users ordered by creation time, newest first
func (r *GormUserRepository) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Scopes(database.Paginate(offset, limit)).
		Find(&users).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return users, total, nil
}

// UpdateName sets the display name
func (r *GormUserRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"name": name})
}

// SetStatus sets the account status
func (r *GormUserRepository) SetStatus(ctx context.Context, id string, status models.UserStatus) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"status": status})
}

// SetRole sets the system role
func (r *GormUserRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"role": role})
}

// ClearInvite unlinks the user from its invite and drops the invited role
func (r *GormUserRepository) ClearInvite(ctx context.Context, id string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"role":       models.RoleStaff,
		"invite_id":  nil,
		"invited_at": nil,
	})
}

// TouchLastLogin stamps last_login only while the user is still active
func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND status = ?", id, models.UserStatusActive).
		Updates(map[string]interface{}{"last_login": at, "updated_at": time.Now()})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// updateColumns writes only the given columns so concurrent changes to others survive
func (r *GormUserRepository) updateColumns(ctx context.Context, id string, columns map[string]interface{}) error {
	columns["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
