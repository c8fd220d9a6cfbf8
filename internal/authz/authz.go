// Package authz decides whether a caller may perform an action on a resource.
//
// Authorize is a pure function over snapshots: callers load the current state of
// the resource from storage right before asking, and never cache a Decision.
package authz

import (
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

// Caller is the authenticated identity making a request.
type Caller struct {
	UserID string
	Role   models.Role
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

func (c Caller) IsSystemAdmin() bool {
	return c.Authenticated() && c.Role == models.RoleAdmin
}

type Action string

const (
	ActionProjectRead         Action = "project:read"
	ActionProjectUpdate       Action = "project:update"
	ActionProjectDelete       Action = "project:delete"
	ActionProjectAddMember    Action = "project:add-member"
	ActionProjectRemoveMember Action = "project:remove-member"

	ActionUserList         Action = "user:list"
	ActionUserRead         Action = "user:read"
	ActionUserUpdateRole   Action = "user:update-role"
	ActionUserUpdateStatus Action = "user:update-status"

	ActionProfileRead   Action = "profile:read"
	ActionProfileUpdate Action = "profile:update"

	ActionInviteCreate Action = "invite:create"
	ActionInviteList   Action = "invite:list"
	ActionInviteRevoke Action = "invite:revoke"

	ActionTaskRead   Action = "task:read"
	ActionTaskCreate Action = "task:create"
	ActionTaskUpdate Action = "task:update"
	ActionTaskDelete Action = "task:delete"
)

// Resource is the snapshot an action targets. Only the fields relevant to the action are read.
type Resource struct {
	Project      *models.Project
	Task         *models.Task
	TargetUserID string
	NewStatus    models.UserStatus
}

type DenyKind int

const (
	DenyNone DenyKind = iota
	DenyUnauthenticated
	DenyForbidden
	// DenyInvalid marks requests that are well-formed but never allowed, such as self-deactivation.
	DenyInvalid
)

// Decision is the verdict for one authorization check.
type Decision struct {
	Allowed bool
	Kind    DenyKind
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(kind DenyKind, reason string) Decision {
	return Decision{Kind: kind, Reason: reason}
}

// Err converts a deny decision into the matching API error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}

	switch d.Kind {
	case DenyUnauthenticated:
		return apierrors.Unauthorized(d.Reason)
	case DenyInvalid:
		return apierrors.Validation(d.Reason)
	default:
		return apierrors.Forbidden(d.Reason)
	}
}

const (
	reasonNotAuthenticated = "Authentication required"

	reasonProjectAccess       = "You don't have access to this project"
	reasonProjectUpdate       = "Only project admin can update project"
	reasonProjectDelete       = "Only admin or project creator can delete project"
	reasonProjectAddMember    = "Only project admin can add team members"
	reasonProjectRemoveMember = "Only project admin can remove team members"

	reasonUserList       = "Only admins can view all users"
	reasonUserRead       = "You don't have permission to view this user"
	reasonUserRole       = "Only admins can change user roles"
	reasonUserStatus     = "Only admins can deactivate users"
	reasonSelfDeactivate = "Cannot deactivate your own account"

	reasonInviteCreate = "Only admins can create invites"
	reasonInviteList   = "Only admins can list invites"
	reasonInviteRevoke = "Only admins can revoke invites"

	reasonTaskDelete = "Only the task creator or project admin can delete this task"
)

// Authorize evaluates action for caller against res.
func Authorize(caller Caller, action Action, res Resource) Decision {
	if !caller.Authenticated() {
		return deny(DenyUnauthenticated, reasonNotAuthenticated)
	}

	switch action {
	case ActionProjectRead:
		return canReadProject(caller, res.Project)
	case ActionProjectUpdate:
		return requireProjectAdmin(caller, res.Project, reasonProjectUpdate)
	case ActionProjectAddMember:
		return requireProjectAdmin(caller, res.Project, reasonProjectAddMember)
	case ActionProjectRemoveMember:
		return requireProjectAdmin(caller, res.Project, reasonProjectRemoveMember)
	case ActionProjectDelete:
		return canDeleteProject(caller, res.Project)

	case ActionUserList:
		return requireSystemAdmin(caller, reasonUserList)
	case ActionUserRead:
		if res.TargetUserID != "" && res.TargetUserID == caller.UserID {
			return allow()
		}
		return requireSystemAdmin(caller, reasonUserRead)
	case ActionUserUpdateRole:
		return requireSystemAdmin(caller, reasonUserRole)
	case ActionUserUpdateStatus:
		if d := requireSystemAdmin(caller, reasonUserStatus); !d.Allowed {
			return d
		}
		if res.TargetUserID == caller.UserID && res.NewStatus != models.UserStatusActive {
			return deny(DenyInvalid, reasonSelfDeactivate)
		}
		return allow()

	case ActionProfileRead, ActionProfileUpdate:
		return allow()

	case ActionInviteCreate:
		return requireSystemAdmin(caller, reasonInviteCreate)
	case ActionInviteList:
		return requireSystemAdmin(caller, reasonInviteList)
	case ActionInviteRevoke:
		return requireSystemAdmin(caller, reasonInviteRevoke)

	case ActionTaskRead, ActionTaskCreate, ActionTaskUpdate:
		return canReadProject(caller, res.Project)
	case ActionTaskDelete:
		return canDeleteTask(caller, res.Project, res.Task)
	}

	return deny(DenyForbidden, "Access denied")
}

func requireSystemAdmin(caller Caller, reason string) Decision {
	if caller.IsSystemAdmin() {
		return allow()
	}
	return deny(DenyForbidden, reason)
}

// canReadProject grants read to participants; system ADMIN reads every project.
func canReadProject(caller Caller, project *models.Project) Decision {
	if project == nil {
		return deny(DenyForbidden, reasonProjectAccess)
	}
	if caller.IsSystemAdmin() || project.HasParticipant(caller.UserID) {
		return allow()
	}
	return deny(DenyForbidden, reasonProjectAccess)
}

// requireProjectAdmin allows only the project's admin. The system ADMIN role does not bypass it.
func requireProjectAdmin(caller Caller, project *models.Project, reason string) Decision {
	if project != nil && project.IsAdmin(caller.UserID) {
		return allow()
	}
	return deny(DenyForbidden, reason)
}

func canDeleteProject(caller Caller, project *models.Project) Decision {
	if project == nil {
		return deny(DenyForbidden, reasonProjectDelete)
	}
	if project.IsAdmin(caller.UserID) || project.IsCreator(caller.UserID) || caller.IsSystemAdmin() {
		return allow()
	}
	return deny(DenyForbidden, reasonProjectDelete)
}

func canDeleteTask(caller Caller, project *models.Project, task *models.Task) Decision {
	if d := canReadProject(caller, project); !d.Allowed {
		return d
	}
	if caller.IsSystemAdmin() || project.IsAdmin(caller.UserID) {
		return allow()
	}
	if task != nil && task.CreatedBy == caller.UserID {
		return allow()
	}
	return deny(DenyForbidden, reasonTaskDelete)
}
