package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no record matches the query.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidID is returned when an identifier is not a well-formed UUID.
	ErrInvalidID = errors.New("invalid id format")
	// ErrStaleState is returned when a conditional update finds the record no longer in the expected state.
	ErrStaleState = errors.New("record state changed")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user. ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByIDs returns the users that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)

	// FindByEmail finds a user by normalised email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByInviteID finds the user registered with the given invite
	FindByInviteID(ctx context.Context, inviteID string) (*models.User, error)

	// List returns a page of users, newest first, and the total count
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)

	// UpdateName sets the display name
	UpdateName(ctx context.Context, id, name string) error

	// SetStatus sets the account status
	SetStatus(ctx context.Context, id string, status models.UserStatus) error

	// SetRole sets the system role
	SetRole(ctx context.Context, id string, role models.Role) error

	// TouchLastLogin records a login for a user that is still ACTIVE.
	// ErrStaleState if the user is no longer active.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// ClearInvite unlinks the user from its invite and resets the role to STAFF
	ClearInvite(ctx context.Context, id string) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project together with its initial team members
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID, deleted or not, with team members in join order
	FindByID(ctx context.Context, id string) (*models.Project, error)

	// ListForUser lists live projects the user created, administers or is a member of
	ListForUser(ctx context.Context, userID string) ([]models.Project, error)

	// Update saves the project's own fields of a live project; team members are left untouched.
	// ErrStaleState if the project has been deleted meanwhile.
	Update(ctx context.Context, project *models.Project) error

	// SoftDelete marks a live project deleted. ErrStaleState if it already was.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// AddMember appends a team member. ErrDuplicate if the user is already on the team.
	AddMember(ctx context.Context, projectID string, member models.ProjectMember) error

	// RemoveMember removes a team member; removing a non-member is not an error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID  string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *string
	Offset     int
	Limit      int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a live task by ID
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves live tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update saves the editable fields of a live task. ErrNotFound if it has been deleted meanwhile.
	Update(ctx context.Context, task *models.Task) error

	// SoftDelete marks a live task deleted
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// SoftDeleteByProjects marks every live task of the given projects deleted and returns how many changed
	SoftDeleteByProjects(ctx context.Context, projectIDs []string, at time.Time) (int64, error)

	// SoftDeleteOrphaned marks every live task of a soft-deleted project deleted and returns how many changed
	SoftDeleteOrphaned(ctx context.Context, at time.Time) (int64, error)
}

// InviteTransition carries the fields set together with a status change.
type InviteTransition struct {
	AcceptedBy *string
	AcceptedAt *time.Time
}

// InviteRepository defines the interface for invite data access
type InviteRepository interface {
	// Create stores a pending invite. ErrDuplicate if a pending invite for the email exists.
	Create(ctx context.Context, invite *models.Invite) error

	// FindByID finds an invite by ID
	FindByID(ctx context.Context, id string) (*models.Invite, error)

	// FindByToken finds an invite by its token
	FindByToken(ctx context.Context, token string) (*models.Invite, error)

	// List returns invites newest first, optionally filtered by status
	List(ctx context.Context, status *models.InviteStatus) ([]models.Invite, error)

	// ListPending returns every invite still in PENDING
	ListPending(ctx context.Context) ([]models.Invite, error)

	// Transition moves an invite from one status to another only if it is still in from.
	// ErrStaleState if the stored status differs.
	Transition(ctx context.Context, id string, from, to models.InviteStatus, change InviteTransition) error
}

// Repositories bundles every repository of one storage backend.
type Repositories struct {
	Users    UserRepository
	Projects ProjectRepository
	Tasks    TaskRepository
	Invites  InviteRepository
}

// NewGormRepositories creates GORM-backed repositories sharing db.
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(db),
		Projects: NewProjectRepository(db),
		Tasks:    NewTaskRepository(db),
		Invites:  NewInviteRepository(db),
	}
}

// ValidateID returns ErrInvalidID unless id is a UUID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// translateError normalises GORM and driver errors to the package errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry") {
		return ErrDuplicate
	}

	return err
}
