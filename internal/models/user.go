package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// Valid reports whether r is one of the system roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

type User struct {
	ID           string     `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Name         string     `gorm:"type:varchar(100);not null" bson:"name" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" bson:"passwordHash" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'STAFF'" bson:"role" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" bson:"status" json:"status"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	InvitedAt    *time.Time `bson:"invitedAt,omitempty" json:"invitedAt,omitempty"`
	// InviteID links the user to the invite it was registered with.
	InviteID  *string   `gorm:"size:36;index" bson:"inviteId,omitempty" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
