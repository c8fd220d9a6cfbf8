package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
)

func TestReconciler_CascadesTasksOfDeletedProjects(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, owner := env.createUser(t, "Owner", "owner@example.com", models.RoleStaff)

	project, err := env.projects.Create(ctx, owner, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	for _, title := range []string{"Design", "Build", "Ship"} {
		_, err := env.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: project.ID, Title: title})
		require.NoError(t, err)
	}

	// Only the first phase of the delete ran.
	require.NoError(t, env.repos.Projects.SoftDelete(ctx, project.ID, env.clock.Now()))

	report, err := env.reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.TasksDeleted)

	report, err = env.reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TasksDeleted)
}

func TestReconciler_AcceptsOrphanedInvites(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	invite, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "a@x.com", Role: models.RoleManager})
	require.NoError(t, err)
	untouched, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "b@x.com", Role: models.RoleStaff})
	require.NoError(t, err)

	// The user was created from the invite but the acceptance write never happened.
	user := &models.User{
		Name:         "Alice",
		Email:        "a@x.com",
		PasswordHash: "hashed",
		Role:         models.RoleManager,
		Status:       models.UserStatusActive,
		InviteID:     &invite.ID,
	}
	require.NoError(t, env.repos.Users.Create(ctx, user))

	report, err := env.reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.InvitesAccepted)

	stored, err := env.repos.Invites.FindByID(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Equal(t, user.ID, *stored.AcceptedBy)

	other, err := env.repos.Invites.FindByID(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, other.Status)

	report, err = env.reconciler.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.InvitesAccepted)
}
