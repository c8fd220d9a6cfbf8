package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
)

var (
	ErrInvalidCredentials = apierrors.Unauthorized("Invalid email or password")
	ErrUserInactive       = apierrors.Unauthorized("User account is inactive")
	ErrEmailRegistered    = apierrors.Conflict("Email already registered")
	ErrInvalidInvitation  = apierrors.Validation("Invalid or expired invitation")
	ErrUserNotFound       = apierrors.NotFound("User not found")
	ErrRefreshTokenAbsent = apierrors.Unauthorized("Refresh token required")
	ErrNameRequired       = apierrors.Validation("Name is required")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	users   repository.UserRepository
	invites *InviteService
	hasher  security.PasswordHasher
	tokens  *security.TokenManager
	log     logrus.FieldLogger
	now     Clock
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserRepository, invites *InviteService, hasher security.PasswordHasher, tokens *security.TokenManager, log logrus.FieldLogger, clock Clock) *AuthService {
	return &AuthService{
		users:   users,
		invites: invites,
		hasher:  hasher,
		tokens:  tokens,
		log:     log,
		now:     clockOrNow(clock),
	}
}

// AuthResult is a signed-in user with a fresh token pair.
type AuthResult struct {
	User   *models.User
	Tokens *security.TokenPair
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	InviteToken string
}

// Register creates a user. Without an invite token the user is STAFF; with one the
// invite must be PENDING, unexpired and addressed to the same email.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := models.NormalizeEmail(input.Email)

	var invite *models.Invite
	if input.InviteToken != "" {
		var err error
		invite, err = s.invites.Lookup(ctx, input.InviteToken)
		if err != nil {
			return nil, err
		}
		if invite.Email != email {
			return nil, ErrInvalidInvitation
		}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Role:         models.RoleStaff,
		Status:       models.UserStatusActive,
	}
	if invite != nil {
		invitedAt := invite.CreatedAt
		user.Role = invite.Role
		user.InvitedAt = &invitedAt
		user.InviteID = &invite.ID
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if invite != nil {
		if err := s.acceptInvite(ctx, invite, user); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")

	return s.issue(user)
}

// acceptInvite marks the invite ACCEPTED for the new user. An invite withdrawn since the
// lookup no longer grants its role, so the user falls back to a plain STAFF account.
func (s *AuthService) acceptInvite(ctx context.Context, invite *models.Invite, user *models.User) error {
	entry := s.log.WithFields(logrus.Fields{"invite_id": invite.ID, "user_id": user.ID})

	err := s.invites.Accept(ctx, invite, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleState):
		if err := s.users.ClearInvite(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to drop withdrawn invite: %w", err)
		}
		user.Role = models.RoleStaff
		user.InviteID = nil
		user.InvitedAt = nil
		entry.Warn("Invite left PENDING before registration finished, user registered as STAFF")
		return nil
	default:
		// Still PENDING; the reconciler finishes the acceptance through the user's InviteID.
		entry.WithError(err).Warn("User registered but invite acceptance failed")
		return nil
	}
}

// Login verifies credentials and returns the authenticated user with tokens.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrUserInactive
		}
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	} else {
		user.LastLogin = &now
	}

	return s.issue(user)
}

// Refresh exchanges a refresh token for a new pair, re-checking that the user is still active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenAbsent
	}

	claims, err := s.tokens.Verify(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, security.ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	return s.issue(user)
}

// Profile returns the caller's own user record.
func (s *AuthService) Profile(ctx context.Context, caller authz.Caller) (*models.User, error) {
	if err := authz.Authorize(caller, authz.ActionProfileRead, authz.Resource{TargetUserID: caller.UserID}).Err(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, findErr(err, ErrUserNotFound, "user")
	}
	return user, nil
}

// UpdateProfile changes the caller's display name.
func (s *AuthService) UpdateProfile(ctx context.Context, caller authz.Caller, name string) (*models.User, error) {
	if err := authz.Authorize(caller, authz.ActionProfileUpdate, authz.Resource{TargetUserID: caller.UserID}).Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if err := s.users.UpdateName(ctx, caller.UserID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, findErr(err, ErrUserNotFound, "user")
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}
