package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

func TestAuthService_InviteAcceptanceScenario(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	invite, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "a@x.com", Role: models.RoleManager})
	require.NoError(t, err)

	status, err := env.invites.Lookup(ctx, invite.InviteToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", status.Email)
	assert.Equal(t, models.RoleManager, status.Role)

	result, err := env.auth.Register(ctx, RegisterInput{
		Name:        "Alice",
		Email:       "a@x.com",
		Password:    "Secret123!",
		InviteToken: invite.InviteToken,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, result.User.Role)
	assert.Equal(t, models.UserStatusActive, result.User.Status)
	require.NotNil(t, result.User.InvitedAt)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	stored, err := env.repos.Invites.FindByID(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Equal(t, result.User.ID, *stored.AcceptedBy)
	assert.NotNil(t, stored.AcceptedAt)
}

func TestAuthService_RegisterWithUsedInviteFails(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(env *serviceEnv, invite *models.Invite)
		message string
	}{
		{
			name: "revoked",
			prepare: func(env *serviceEnv, invite *models.Invite) {
				require.NoError(t, env.repos.Invites.Transition(context.Background(), invite.ID, models.InviteStatusPending, models.InviteStatusRevoked, repository.InviteTransition{}))
			},
			message: "Invite has been revoked",
		},
		{
			name: "accepted",
			prepare: func(env *serviceEnv, invite *models.Invite) {
				require.NoError(t, env.repos.Invites.Transition(context.Background(), invite.ID, models.InviteStatusPending, models.InviteStatusAccepted, repository.InviteTransition{}))
			},
			message: "Invite has been accepted",
		},
		{
			name: "expired",
			prepare: func(env *serviceEnv, invite *models.Invite) {
				env.clock.Advance(8 * 24 * time.Hour)
			},
			message: "Invite has expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupServiceEnv(t)
			ctx := context.Background()
			_, admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

			invite, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "a@x.com", Role: models.RoleManager})
			require.NoError(t, err)
			tt.prepare(env, invite)

			_, err = env.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "Secret123!", InviteToken: invite.InviteToken})
			requireAPIError(t, err, http.StatusBadRequest, tt.message)

			_, err = env.repos.Users.FindByEmail(ctx, "a@x.com")
			assert.ErrorIs(t, err, repository.ErrNotFound)
		})
	}
}

func TestAuthService_RegisterInviteEmailMismatch(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	invite, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "a@x.com", Role: models.RoleManager})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, RegisterInput{Name: "Mallory", Email: "m@x.com", Password: "Secret123!", InviteToken: invite.InviteToken})
	assert.ErrorIs(t, err, ErrInvalidInvitation)
}

func TestAuthService_RegisterWithoutInvite(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()

	result, err := env.auth.Register(ctx, RegisterInput{Name: "Bob", Email: "Bob@Example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, result.User.Role)
	assert.Equal(t, "bob@example.com", result.User.Email)
	assert.Nil(t, result.User.InvitedAt)

	_, err = env.auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "Secret123!"})
	requireAPIError(t, err, http.StatusConflict, "Email already registered")
}

func TestAuthService_RegisterJoinsInviteProject(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, admin := env.createUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	project, err := env.projects.Create(ctx, admin, CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	invite, err := env.invites.Create(ctx, admin, CreateInviteInput{Email: "a@x.com", Role: models.RoleStaff, ProjectID: &project.ID})
	require.NoError(t, err)

	result, err := env.auth.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "Secret123!", InviteToken: invite.InviteToken})
	require.NoError(t, err)

	loaded, err := env.repos.Projects.FindByID(ctx, project.ID)
	require.NoError(t, err)
	member, ok := loaded.Member(result.User.ID)
	require.True(t, ok)
	assert.Equal(t, models.MemberRoleMember, member.Role)
}

func TestAuthService_Login(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	user := env.createUserWithPassword(t, "alice@example.com", "Secret123!")

	_, err := env.auth.Login(ctx, "alice@example.com", "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, "Invalid email or password")

	_, err = env.auth.Login(ctx, "nobody@example.com", "Secret123!")
	requireAPIError(t, err, http.StatusUnauthorized, "Invalid email or password")

	result, err := env.auth.Login(ctx, "ALICE@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	stored, err := env.repos.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	require.NoError(t, env.repos.Users.SetStatus(ctx, stored.ID, models.UserStatusInactive))
	_, err = env.auth.Login(ctx, "alice@example.com", "Secret123!")
	requireAPIError(t, err, http.StatusUnauthorized, "User account is inactive")
}

func TestAuthService_Refresh(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	env.createUserWithPassword(t, "alice@example.com", "Secret123!")

	login, err := env.auth.Login(ctx, "alice@example.com", "Secret123!")
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, refreshed.User.ID)

	_, err = env.auth.Refresh(ctx, login.Tokens.AccessToken)
	assert.Error(t, err)

	_, err = env.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrRefreshTokenAbsent)
}

func TestAuthService_Profile(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()
	_, caller := env.createUser(t, "Alice", "alice@example.com", models.RoleStaff)

	user, err := env.auth.UpdateProfile(ctx, caller, "  Alice Smith ")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", user.Name)

	profile, err := env.auth.Profile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", profile.Name)

	_, err = env.auth.UpdateProfile(ctx, caller, " ")
	assert.ErrorIs(t, err, ErrNameRequired)
}
