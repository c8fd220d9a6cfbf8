package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingInvites records successful transitions per target status.
type countingInvites struct {
	repository.InviteRepository
	mu          sync.Mutex
	transitions map[models.InviteStatus]int
}

func (r *countingInvites) Transition(ctx context.Context, id string, from, to models.InviteStatus, change repository.InviteTransition) error {
	err := r.InviteRepository.Transition(ctx, id, from, to, change)
	if err == nil {
		r.mu.Lock()
		r.transitions[to]++
		r.mu.Unlock()
	}
	return err
}

type recordingNotifier struct {
	invites []*models.Invite
}

func (n *recordingNotifier) InviteCreated(ctx context.Context, invite *models.Invite) error {
	n.invites = append(n.invites, invite)
	return nil
}

type serviceEnv struct {
	db         *gorm.DB
	repos      *repository.Repositories
	clock      *fakeClock
	counter    *countingInvites
	notifier   *recordingNotifier
	hasher     security.PasswordHasher
	invites    *InviteService
	auth       *AuthService
	users      *UserService
	projects   *ProjectService
	tasks      *TaskService
	reconciler *Reconciler
}

func setupServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := testutil.OpenTestDB(t)
	repos := repository.NewGormRepositories(db)
	counter := &countingInvites{InviteRepository: repos.Invites, transitions: map[models.InviteStatus]int{}}
	repos.Invites = counter

	log := logger.Discard()
	clock := &fakeClock{now: time.Now().Truncate(time.Second)}
	notifier := &recordingNotifier{}
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := security.NewTokenManager(testutil.TestJWTSecret, 15*time.Minute, 7*24*time.Hour)

	invites := NewInviteService(repos, notifier, log, 7*24*time.Hour, clock.Now)
	projects := NewProjectService(repos, log, clock.Now)

	return &serviceEnv{
		db:         db,
		repos:      repos,
		clock:      clock,
		counter:    counter,
		notifier:   notifier,
		hasher:     hasher,
		invites:    invites,
		auth:       NewAuthService(repos.Users, invites, hasher, tokens, log, clock.Now),
		users:      NewUserService(repos.Users, log),
		projects:   projects,
		tasks:      NewTaskService(repos, projects, nil, log, clock.Now),
		reconciler: NewReconciler(repos, log, clock.Now),
	}
}

func (e *serviceEnv) createUser(t *testing.T, name, email string, role models.Role) (*models.User, authz.Caller) {
	t.Helper()
	user := testutil.CreateUser(t, e.db, name, email, role)
	return user, authz.Caller{UserID: user.ID, Role: user.Role}
}

// createUserWithPassword inserts an active user whose password verifies.
func (e *serviceEnv) createUserWithPassword(t *testing.T, email, password string) *models.User {
	t.Helper()
	digest, err := e.hasher.Hash(password)
	require.NoError(t, err)

	user := &models.User{Name: "User", Email: email, PasswordHash: digest, Role: models.RoleStaff, Status: models.UserStatusActive}
	require.NoError(t, e.repos.Users.Create(context.Background(), user))
	return user
}

// requireAPIError asserts err is an APIError with the given status and message.
func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, message, apiErr.Message)
}
