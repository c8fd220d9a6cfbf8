package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone, TaskStatusBlocked:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          string       `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Title       string       `gorm:"type:varchar(200);not null" bson:"title" json:"title"`
	Description string       `gorm:"type:text" bson:"description" json:"description"`
	ProjectID   string       `gorm:"size:36;not null" bson:"projectId" json:"projectId"`
	AssignedTo  *string      `gorm:"size:36" bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedBy   string       `gorm:"size:36;not null" bson:"createdBy" json:"createdBy"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'TODO'" bson:"status" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" bson:"priority" json:"priority"`
	DueDate     *time.Time   `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	IsDeleted   bool         `gorm:"not null;default:false;index" bson:"isDeleted" json:"isDeleted"`
	DeletedAt   *time.Time   `gorm:"index" bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
