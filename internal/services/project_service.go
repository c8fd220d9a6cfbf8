package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

var (
	ErrProjectNotFound        = apierrors.NotFound("Project not found")
	ErrProjectDeleted         = apierrors.NotFound("Project has been deleted")
	ErrProjectAlreadyDeleted  = apierrors.NotFound("Project has already been deleted")
	ErrInvalidProjectName     = apierrors.Validation("Project name must be at least 3 characters")
	ErrInvalidProjectStatus   = apierrors.Validation("Invalid project status")
	ErrAlreadyProjectMember   = apierrors.Validation("User is already a team member")
	ErrInvalidMemberRole      = apierrors.Validation("Invalid member role")
	ErrProjectMemberNotExists = apierrors.NotFound("User not found")
)

const minProjectNameLength = 3

// ProjectService provides business logic for projects and their teams.
type ProjectService struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	users    repository.UserRepository
	log      logrus.FieldLogger
	now      Clock
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repos *repository.Repositories, log logrus.FieldLogger, clock Clock) *ProjectService {
	return &ProjectService{
		projects: repos.Projects,
		tasks:    repos.Tasks,
		users:    repos.Users,
		log:      log,
		now:      clockOrNow(clock),
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
}

// UpdateProjectInput holds the fields a project admin may change; nil means unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
}

// Create creates a project whose creator is its admin and its only ADMIN team member.
func (s *ProjectService) Create(ctx context.Context, caller authz.Caller, input CreateProjectInput) (*models.Project, error) {
	if !caller.Authenticated() {
		return nil, apierrors.ErrUnauthorized
	}

	name := strings.TrimSpace(input.Name)
	if len(name) < minProjectNameLength {
		return nil, ErrInvalidProjectName
	}
	status := input.Status
	if status == "" {
		status = models.ProjectStatusActive
	}
	if !status.Valid() {
		return nil, ErrInvalidProjectStatus
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		Status:      status,
		CreatedBy:   caller.UserID,
		AdminID:     caller.UserID,
		TeamMembers: []models.ProjectMember{
			{UserID: caller.UserID, Role: models.MemberRoleAdmin, JoinedAt: s.now()},
		},
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.log.WithFields(logrus.Fields{"project_id": project.ID, "created_by": caller.UserID}).Info("Project created")
	return project, nil
}

// List returns the live projects the caller created, administers or belongs to.
func (s *ProjectService) List(ctx context.Context, caller authz.Caller) ([]models.Project, error) {
	if !caller.Authenticated() {
		return nil, apierrors.ErrUnauthorized
	}

	projects, err := s.projects.ListForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Get returns a live project the caller may read.
func (s *ProjectService) Get(ctx context.Context, caller authz.Caller, projectID string) (*models.Project, error) {
	project, err := s.loadLive(ctx, projectID, ErrProjectNotFound)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(caller, authz.ActionProjectRead, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}
	return project, nil
}

// Update applies the admin's changes to a live project.
func (s *ProjectService) Update(ctx context.Context, caller authz.Caller, projectID string, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.loadLive(ctx, projectID, ErrProjectDeleted)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(caller, authz.ActionProjectUpdate, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < minProjectNameLength {
			return nil, ErrInvalidProjectName
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidProjectStatus
		}
		project.Status = *input.Status
	}

	if err := s.projects.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrProjectDeleted
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// Delete soft-deletes a project in two phases: the project is marked deleted first,
// then its tasks. If the second phase fails the reconciler completes it later.
func (s *ProjectService) Delete(ctx context.Context, caller authz.Caller, projectID string) error {
	project, err := s.loadLive(ctx, projectID, ErrProjectAlreadyDeleted)
	if err != nil {
		return err
	}

	if err := authz.Authorize(caller, authz.ActionProjectDelete, authz.Resource{Project: project}).Err(); err != nil {
		return err
	}

	at := s.now()
	if err := s.projects.SoftDelete(ctx, project.ID, at); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return ErrProjectAlreadyDeleted
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	entry := s.log.WithFields(logrus.Fields{"project_id": project.ID, "deleted_by": caller.UserID})

	count, err := s.tasks.SoftDeleteByProjects(ctx, []string{project.ID}, at)
	if err != nil {
		entry.WithError(err).Warn("Project deleted but task cascade failed; reconciler will retry")
		return nil
	}

	entry.WithField("tasks_deleted", count).Info("Project soft-deleted")
	return nil
}

// AddMember appends a user to the project team. Duplicates are rejected.
func (s *ProjectService) AddMember(ctx context.Context, caller authz.Caller, projectID, userID string, role models.MemberRole) (*models.Project, error) {
	project, err := s.loadLive(ctx, projectID, ErrProjectDeleted)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(caller, authz.ActionProjectAddMember, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}

	if role == "" {
		role = models.MemberRoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidMemberRole
	}

	if _, exists := project.Member(userID); exists {
		return nil, ErrAlreadyProjectMember
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, findErr(err, ErrProjectMemberNotExists, "user")
	}

	member := models.ProjectMember{UserID: userID, Role: role, JoinedAt: s.now()}
	if err := s.projects.AddMember(ctx, project.ID, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyProjectMember
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	return s.reload(ctx, project.ID)
}

// RemoveMember takes a user off the project team. Removing a non-member succeeds.
func (s *ProjectService) RemoveMember(ctx context.Context, caller authz.Caller, projectID, userID string) (*models.Project, error) {
	project, err := s.loadLive(ctx, projectID, ErrProjectDeleted)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(caller, authz.ActionProjectRemoveMember, authz.Resource{Project: project}).Err(); err != nil {
		return nil, err
	}

	if err := s.projects.RemoveMember(ctx, project.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove team member: %w", err)
	}

	return s.reload(ctx, project.ID)
}

// Users loads every user referenced by projects for response population.
func (s *ProjectService) Users(ctx context.Context, projects ...models.Project) (dto.UserDirectory, error) {
	var ids []string
	for i := range projects {
		ids = append(ids, projects[i].UserIDs()...)
	}
	return loadUsers(ctx, s.users, models.UniqueStrings(ids))
}

// loadLive fetches a project, treating a soft-deleted one as missing with deletedErr.
func (s *ProjectService) loadLive(ctx context.Context, projectID string, deletedErr *apierrors.APIError) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, findErr(err, ErrProjectNotFound, "project")
	}
	if project.IsDeleted {
		return nil, deletedErr
	}
	return project, nil
}

func (s *ProjectService) reload(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, findErr(err, ErrProjectNotFound, "project")
	}
	return project, nil
}
