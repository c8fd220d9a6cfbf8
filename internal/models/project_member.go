package models

import "time"

type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "ADMIN"
	MemberRoleManager MemberRole = "MANAGER"
	MemberRoleMember  MemberRole = "MEMBER"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleAdmin, MemberRoleManager, MemberRoleMember:
		return true
	}
	return false
}

// ProjectMember is a row of project_members in SQL stores and an embedded
// element of the project document in MongoDB.
type ProjectMember struct {
	ProjectID string     `gorm:"primaryKey;size:36" bson:"-" json:"-"`
	UserID    string     `gorm:"primaryKey;size:36" bson:"userId" json:"userId"`
	Role      MemberRole `gorm:"type:varchar(20);not null;default:'MEMBER'" bson:"role" json:"role"`
	JoinedAt  time.Time  `bson:"joinedAt" json:"joinedAt"`
}

func (ProjectMember) TableName() string { return "project_members" }
