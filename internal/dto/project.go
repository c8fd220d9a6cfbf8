package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// ProjectMemberDTO represents a team member in a project
type ProjectMemberDTO struct {
	UserID   string            `json:"userId"`
	Role     models.MemberRole `json:"role"`
	JoinedAt time.Time         `json:"joinedAt"`
	User     *UserRefDTO       `json:"user,omitempty"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	CreatedBy   UserRefDTO           `json:"createdBy"`
	Admin       UserRefDTO           `json:"admin"`
	TeamMembers []ProjectMemberDTO   `json:"teamMembers"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// ToProjectDTO converts a project, populating user references from users
func ToProjectDTO(project models.Project, users UserDirectory) ProjectDTO {
	members := make([]ProjectMemberDTO, len(project.TeamMembers))
	for i, m := range project.TeamMembers {
		members[i] = ProjectMemberDTO{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		if u, ok := users[m.UserID]; ok {
			ref := ToUserRefDTO(u)
			members[i].User = &ref
		}
	}

	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		CreatedBy:   users.Ref(project.CreatedBy),
		Admin:       users.Ref(project.AdminID),
		TeamMembers: members,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project, users UserDirectory) []ProjectDTO {
	items := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		items[i] = ToProjectDTO(p, users)
	}
	return items
}
