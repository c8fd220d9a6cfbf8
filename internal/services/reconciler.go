package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

// Reconciler finishes two-phase operations that stopped after their first write:
// tasks of soft-deleted projects, and invites whose user was created but never marked ACCEPTED.
type Reconciler struct {
	repos *repository.Repositories
	log   logrus.FieldLogger
	now   Clock
}

func NewReconciler(repos *repository.Repositories, log logrus.FieldLogger, clock Clock) *Reconciler {
	return &Reconciler{repos: repos, log: log, now: clockOrNow(clock)}
}

// ReconcileReport counts the repairs made by one pass.
type ReconcileReport struct {
	TasksDeleted    int64
	InvitesAccepted int
}

// ReconcileOnce runs a single idempotent repair pass.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	var err error
	report.TasksDeleted, err = r.repos.Tasks.SoftDeleteOrphaned(ctx, r.now())
	if err != nil {
		return report, fmt.Errorf("failed to cascade task deletion: %w", err)
	}

	pending, err := r.repos.Invites.ListPending(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list pending invites: %w", err)
	}
	for i := range pending {
		accepted, err := r.acceptOrphan(ctx, &pending[i])
		if err != nil {
			return report, err
		}
		if accepted {
			report.InvitesAccepted++
		}
	}

	if report.TasksDeleted > 0 || report.InvitesAccepted > 0 {
		r.log.WithFields(logrus.Fields{
			"tasks_deleted":    report.TasksDeleted,
			"invites_accepted": report.InvitesAccepted,
		}).Info("Reconciler repaired partial operations")
	}

	return report, nil
}

func (r *Reconciler) acceptOrphan(ctx context.Context, invite *models.Invite) (bool, error) {
	user, err := r.repos.Users.FindByInviteID(ctx, invite.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to find user for invite %s: %w", invite.ID, err)
	}

	acceptedAt := user.CreatedAt
	err = r.repos.Invites.Transition(ctx, invite.ID, models.InviteStatusPending, models.InviteStatusAccepted, repository.InviteTransition{
		AcceptedBy: &user.ID,
		AcceptedAt: &acceptedAt,
	})
	if errors.Is(err, repository.ErrStaleState) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to accept invite %s: %w", invite.ID, err)
	}
	return true, nil
}

// Run repeats ReconcileOnce every interval until ctx is cancelled. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.log.Info("Reconciler disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				r.log.WithError(err).Error("Reconcile pass failed")
			}
		}
	}
}
