package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
)

var (
	ErrInviteUserExists     = apierrors.Validation("User with this email already exists")
	ErrInviteAlreadySent    = apierrors.Validation("Invite already sent to this email")
	ErrInviteTokenRequired  = apierrors.Validation("Invalid invite token")
	ErrInviteUnknownToken   = apierrors.NotFound("Invite not found or has been revoked")
	ErrInviteNotFound       = apierrors.NotFound("Invite not found")
	ErrInviteExpired        = apierrors.Validation("Invite has expired")
	ErrInviteNotRevocable   = apierrors.Validation("Only pending invites can be revoked")
	ErrInviteProjectMissing = apierrors.NotFound("Project not found")
	ErrInvalidInviteStatus  = apierrors.Validation("Invalid invite status")
)

// InviteService runs the invite lifecycle: PENDING moves once to ACCEPTED, DECLINED,
// REVOKED or EXPIRED. Every transition is a conditional write on the PENDING state.
type InviteService struct {
	invites  repository.InviteRepository
	users    repository.UserRepository
	projects repository.ProjectRepository
	notifier InviteNotifier
	log      logrus.FieldLogger
	ttl      time.Duration
	now      Clock
}

// NewInviteService creates a new InviteService.
func NewInviteService(repos *repository.Repositories, notifier InviteNotifier, log logrus.FieldLogger, ttl time.Duration, clock Clock) *InviteService {
	return &InviteService{
		invites:  repos.Invites,
		users:    repos.Users,
		projects: repos.Projects,
		notifier: notifier,
		log:      log,
		ttl:      ttl,
		now:      clockOrNow(clock),
	}
}

// CreateInviteInput represents parameters to invite a new user.
type CreateInviteInput struct {
	Email     string
	Role      models.Role
	ProjectID *string
}

// Create issues a PENDING invite. The store's pending-email uniqueness decides races.
func (s *InviteService) Create(ctx context.Context, caller authz.Caller, input CreateInviteInput) (*models.Invite, error) {
	if err := authz.Authorize(caller, authz.ActionInviteCreate, authz.Resource{}).Err(); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(input.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrInviteUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if input.ProjectID != nil {
		project, err := s.projects.FindByID(ctx, *input.ProjectID)
		if err != nil {
			return nil, findErr(err, ErrInviteProjectMissing, "project")
		}
		if project.IsDeleted {
			return nil, ErrInviteProjectMissing
		}
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite := models.NewPendingInvite(email, input.Role, caller.UserID, token, input.ProjectID, s.now(), s.ttl)
	if err := s.invites.Create(ctx, invite); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrInviteAlreadySent
		}
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"invite_id":  invite.ID,
		"email":      invite.Email,
		"role":       invite.Role,
		"invited_by": caller.UserID,
	}).Info("Invite created")

	if err := s.notifier.InviteCreated(ctx, invite); err != nil {
		s.log.WithError(err).WithField("invite_id", invite.ID).Warn("Failed to deliver invite")
	}

	return invite, nil
}

// Lookup resolves a token to a usable PENDING invite. A lapsed PENDING invite is moved
// to EXPIRED here, exactly once; any non-pending invite fails with its state.
func (s *InviteService) Lookup(ctx context.Context, token string) (*models.Invite, error) {
	if token == "" {
		return nil, ErrInviteTokenRequired
	}

	invite, err := s.invites.FindByToken(ctx, token)
	if err != nil {
		return nil, findErr(err, ErrInviteUnknownToken, "invite")
	}

	if invite.HasLapsed(s.now()) {
		if err := s.expire(ctx, invite); err != nil {
			return nil, err
		}
		return nil, ErrInviteExpired
	}

	if invite.Status != models.InviteStatusPending {
		return nil, inviteStateError(invite.Status)
	}

	return invite, nil
}

func (s *InviteService) expire(ctx context.Context, invite *models.Invite) error {
	err := s.invites.Transition(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusExpired, repository.InviteTransition{})
	switch {
	case err == nil:
		invite.Status = models.InviteStatusExpired
		s.log.WithField("invite_id", invite.ID).Info("Invite expired")
		return nil
	case errors.Is(err, repository.ErrStaleState):
		// Another request already moved it out of PENDING.
		return nil
	default:
		return fmt.Errorf("failed to expire invite: %w", err)
	}
}

func inviteStateError(status models.InviteStatus) error {
	if status == models.InviteStatusExpired {
		return ErrInviteExpired
	}
	return apierrors.Validation(fmt.Sprintf("Invite has been %s", status.Lower()))
}

// List returns invites newest first together with the inviting users.
func (s *InviteService) List(ctx context.Context, caller authz.Caller, status string) ([]models.Invite, dto.UserDirectory, error) {
	if err := authz.Authorize(caller, authz.ActionInviteList, authz.Resource{}).Err(); err != nil {
		return nil, nil, err
	}

	var filter *models.InviteStatus
	if status != "" {
		st := models.InviteStatus(status)
		if !st.Valid() {
			return nil, nil, ErrInvalidInviteStatus
		}
		filter = &st
	}

	invites, err := s.invites.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list invites: %w", err)
	}

	users, err := s.Users(ctx, invites...)
	if err != nil {
		return nil, nil, err
	}

	return invites, users, nil
}

// Users loads the inviting users of invites for response population.
func (s *InviteService) Users(ctx context.Context, invites ...models.Invite) (dto.UserDirectory, error) {
	ids := make([]string, 0, len(invites))
	for _, inv := range invites {
		ids = append(ids, inv.InvitedBy)
	}
	return loadUsers(ctx, s.users, models.UniqueStrings(ids))
}

// Revoke moves a PENDING invite to REVOKED.
func (s *InviteService) Revoke(ctx context.Context, caller authz.Caller, inviteID string) error {
	if err := authz.Authorize(caller, authz.ActionInviteRevoke, authz.Resource{}).Err(); err != nil {
		return err
	}

	invite, err := s.invites.FindByID(ctx, inviteID)
	if err != nil {
		return findErr(err, ErrInviteNotFound, "invite")
	}
	if invite.Status != models.InviteStatusPending {
		return ErrInviteNotRevocable
	}

	err = s.invites.Transition(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusRevoked, repository.InviteTransition{})
	if errors.Is(err, repository.ErrStaleState) {
		return ErrInviteNotRevocable
	}
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}

	s.log.WithFields(logrus.Fields{"invite_id": invite.ID, "revoked_by": caller.UserID}).Info("Invite revoked")
	return nil
}

// Decline lets the invitee turn down a PENDING invite.
func (s *InviteService) Decline(ctx context.Context, token string) error {
	invite, err := s.Lookup(ctx, token)
	if err != nil {
		return err
	}

	err = s.invites.Transition(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusDeclined, repository.InviteTransition{})
	if errors.Is(err, repository.ErrStaleState) {
		return s.currentStateError(ctx, invite.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to decline invite: %w", err)
	}

	s.log.WithField("invite_id", invite.ID).Info("Invite declined")
	return nil
}

// Accept completes registration: marks the invite ACCEPTED by user and, when the invite
// is scoped to a live project, adds the user to its team. The user already exists at this
// point; a failure here leaves the invite PENDING for the reconciler to finish.
func (s *InviteService) Accept(ctx context.Context, invite *models.Invite, user *models.User) error {
	acceptedAt := s.now()
	err := s.invites.Transition(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusAccepted, repository.InviteTransition{
		AcceptedBy: &user.ID,
		AcceptedAt: &acceptedAt,
	})
	if errors.Is(err, repository.ErrStaleState) {
		current, lookupErr := s.invites.FindByID(ctx, invite.ID)
		if lookupErr != nil || !current.AcceptedFor(user.ID) {
			return fmt.Errorf("invite %s is no longer pending: %w", invite.ID, err)
		}
		// Already accepted for this user by the reconciler.
		acceptedAt = *current.AcceptedAt
	} else if err != nil {
		return fmt.Errorf("failed to accept invite: %w", err)
	}

	invite.Status = models.InviteStatusAccepted
	invite.AcceptedBy = &user.ID
	invite.AcceptedAt = &acceptedAt

	s.log.WithFields(logrus.Fields{"invite_id": invite.ID, "user_id": user.ID}).Info("Invite accepted")

	if invite.ProjectID != nil {
		s.joinProject(ctx, *invite.ProjectID, user.ID, acceptedAt)
	}
	return nil
}

func (s *InviteService) joinProject(ctx context.Context, projectID, userID string, at time.Time) {
	entry := s.log.WithFields(logrus.Fields{"project_id": projectID, "user_id": userID})

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil || project.IsDeleted {
		entry.WithError(err).Warn("Invite project unavailable, skipping team join")
		return
	}

	member := models.ProjectMember{UserID: userID, Role: models.MemberRoleMember, JoinedAt: at}
	if err := s.projects.AddMember(ctx, projectID, member); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		entry.WithError(err).Warn("Failed to add invited user to project")
	}
}

func (s *InviteService) currentStateError(ctx context.Context, inviteID string) error {
	invite, err := s.invites.FindByID(ctx, inviteID)
	if err != nil {
		return findErr(err, ErrInviteNotFound, "invite")
	}
	return inviteStateError(invite.Status)
}
