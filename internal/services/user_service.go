package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
)

var (
	ErrInvalidRole       = apierrors.Validation("Invalid role")
	ErrInvalidUserStatus = apierrors.Validation("Invalid status")
)

// UserService provides the admin user directory and account management.
type UserService struct {
	users repository.UserRepository
	log   logrus.FieldLogger
}

func NewUserService(users repository.UserRepository, log logrus.FieldLogger) *UserService {
	return &UserService{users: users, log: log}
}

// List returns a page of users, newest first.
func (s *UserService) List(ctx context.Context, caller authz.Caller, params utils.PaginationParams) ([]models.User, *dto.Pagination, error) {
	if err := authz.Authorize(caller, authz.ActionUserList, authz.Resource{}).Err(); err != nil {
		return nil, nil, err
	}

	users, total, err := s.users.List(ctx, params.Offset, params.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, dto.NewPagination(total, params.Page, params.Limit), nil
}

// Get returns a user visible to the caller: anyone for an ADMIN, otherwise only themselves.
func (s *UserService) Get(ctx context.Context, caller authz.Caller, userID string) (*models.User, error) {
	if err := authz.Authorize(caller, authz.ActionUserRead, authz.Resource{TargetUserID: userID}).Err(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, findErr(err, ErrUserNotFound, "user")
	}
	return user, nil
}

// UpdateStatus activates or deactivates a user. An ADMIN cannot deactivate themselves.
func (s *UserService) UpdateStatus(ctx context.Context, caller authz.Caller, userID string, status models.UserStatus) (*models.User, error) {
	res := authz.Resource{TargetUserID: userID, NewStatus: status}
	if err := authz.Authorize(caller, authz.ActionUserUpdateStatus, res).Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidUserStatus
	}

	if err := s.users.SetStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, findErr(err, ErrUserNotFound, "user")
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "status": status, "by": caller.UserID}).Info("User status changed")
	return user, nil
}

// UpdateRole changes a user's system role.
func (s *UserService) UpdateRole(ctx context.Context, caller authz.Caller, userID string, role models.Role) (*models.User, error) {
	if err := authz.Authorize(caller, authz.ActionUserUpdateRole, authz.Resource{TargetUserID: userID}).Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if err := s.users.SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, findErr(err, ErrUserNotFound, "user")
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": role, "by": caller.UserID}).Info("User role changed")
	return user, nil
}
