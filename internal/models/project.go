package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

// Project is soft-deleted through IsDeleted/DeletedAt; deleted projects stay in storage for audit.
type Project struct {
	ID          string          `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" bson:"name" json:"name"`
	Description string          `gorm:"type:varchar(500)" bson:"description" json:"description"`
	Status      ProjectStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE'" bson:"status" json:"status"`
	CreatedBy   string          `gorm:"size:36;not null" bson:"createdBy" json:"createdBy"`
	AdminID     string          `gorm:"size:36;not null;column:admin_id" bson:"admin" json:"admin"`
	TeamMembers []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" bson:"teamMembers" json:"teamMembers"`
	IsDeleted   bool            `gorm:"not null;default:false;index" bson:"isDeleted" json:"isDeleted"`
	DeletedAt   *time.Time      `gorm:"index" bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether userID is the project's admin.
func (p *Project) IsAdmin(userID string) bool {
	return userID != "" && p.AdminID == userID
}

// IsCreator reports whether userID created the project.
func (p *Project) IsCreator(userID string) bool {
	return userID != "" && p.CreatedBy == userID
}

// Member returns the team entry for userID.
func (p *Project) Member(userID string) (ProjectMember, bool) {
	for _, m := range p.TeamMembers {
		if m.UserID == userID {
			return m, true
		}
	}
	return ProjectMember{}, false
}

// HasParticipant reports whether userID is the creator, the admin or a listed team member.
func (p *Project) HasParticipant(userID string) bool {
	if p.IsCreator(userID) || p.IsAdmin(userID) {
		return true
	}
	_, ok := p.Member(userID)
	return ok
}

// UserIDs returns every user referenced by the project, without duplicates.
func (p *Project) UserIDs() []string {
	ids := []string{p.CreatedBy, p.AdminID}
	for _, m := range p.TeamMembers {
		ids = append(ids, m.UserID)
	}
	return UniqueStrings(ids)
}

// UniqueStrings removes empty and duplicate values, keeping first occurrence order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
