package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/repository"
)

// Clock returns the current time; services take one so tests can move time forward.
type Clock func() time.Time

func clockOrNow(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}

// findErr maps a repository lookup failure: ErrNotFound becomes notFound, anything else is wrapped.
func findErr(err error, notFound *apierrors.APIError, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// loadUsers bulk-loads the users referenced by ids for populating responses.
func loadUsers(ctx context.Context, users repository.UserRepository, ids []string) (dto.UserDirectory, error) {
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return dto.NewUserDirectory(found), nil
}
