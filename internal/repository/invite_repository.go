package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormInviteRepository is a GORM implementation of InviteRepository
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &GormInviteRepository{db: db}
}

// Create inserts the invite; the unique pending_email index rejects a second pending invite
func (r *GormInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	return translateError(r.db.WithContext(ctx).Create(invite).Error)
}

// FindByID finds an invite by ID
func (r *GormInviteRepository) FindByID(ctx context.Context, id string) (*models.Invite, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var invite models.Invite
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error; err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

// FindByToken finds an invite by token
func (r *GormInviteRepository) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).Where("invite_token = ?", token).First(&invite).Error; err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

// List returns invites newest first
func (r *GormInviteRepository) List(ctx context.Context, status *models.InviteStatus) ([]models.Invite, error) {
	query := r.db.WithContext(ctx).Model(&models.Invite{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var invites []models.Invite
	if err := query.Order("created_at DESC").Find(&invites).Error; err != nil {
		return nil, translateError(err)
	}
	return invites, nil
}

// ListPending returns every pending invite
func (r *GormInviteRepository) ListPending(ctx context.Context) ([]models.Invite, error) {
	status := models.InviteStatusPending
	return r.List(ctx, &status)
}

// Transition updates the status only while the row is still in from, and releases the
// pending_email slot so a new invite can be issued for the address.
func (r *GormInviteRepository) Transition(ctx context.Context, id string, from, to models.InviteStatus, change InviteTransition) error {
	if !from.CanTransitionTo(to) {
		return ErrStaleState
	}

	updates := map[string]interface{}{
		"status":        to,
		"pending_email": gorm.Expr("NULL"),
	}
	if change.AcceptedBy != nil {
		updates["accepted_by"] = *change.AcceptedBy
	}
	if change.AcceptedAt != nil {
		updates["accepted_at"] = *change.AcceptedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.Invite{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
