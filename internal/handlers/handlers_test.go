package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"github.com/yukikurage/project-management-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Register()
}

type handlerTestEnv struct {
	db       *gorm.DB
	repos    *repository.Repositories
	hasher   security.PasswordHasher
	tokens   *security.TokenManager
	auth     *AuthHandler
	users    *UserHandler
	invites  *InviteHandler
	projects *ProjectHandler
	tasks    *TaskHandler

	projectService *services.ProjectService
	taskService    *services.TaskService
	inviteService  *services.InviteService
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	db := testutil.OpenTestDB(t)
	repos := repository.NewGormRepositories(db)
	log := logger.Discard()

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := security.NewTokenManager(testutil.TestJWTSecret, 15*time.Minute, 7*24*time.Hour)

	inviteService := services.NewInviteService(repos, services.NewLogNotifier(log, "http://localhost:3000"), log, constants.DefaultInviteTTL, nil)
	authService := services.NewAuthService(repos.Users, inviteService, hasher, tokens, log, nil)
	projectService := services.NewProjectService(repos, log, nil)
	taskService := services.NewTaskService(repos, projectService, nil, log, nil)

	return &handlerTestEnv{
		db:             db,
		repos:          repos,
		hasher:         hasher,
		tokens:         tokens,
		auth:           NewAuthHandler(authService, tokens.AccessTTL(), false),
		users:          NewUserHandler(services.NewUserService(repos.Users, log)),
		invites:        NewInviteHandler(inviteService, true),
		projects:       NewProjectHandler(projectService),
		tasks:          NewTaskHandler(taskService),
		projectService: projectService,
		taskService:    taskService,
		inviteService:  inviteService,
	}
}

// newTestRouter returns an engine with the error boundary and a cookie session store.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Discard(), true))
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	return r
}

// asUser authenticates the request as user without a token.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyEmail, user.Email)
		c.Set(constants.ContextKeyRole, user.Role)
		c.Next()
	}
}

func doRequest(t *testing.T, r *gin.Engine, method, url string, payload interface{}) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w, response
}

// decodeData re-decodes the envelope data into out.
func decodeData(t *testing.T, response dto.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(response.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func testCreateUser(t *testing.T, env *handlerTestEnv, name, email string, role models.Role) *models.User {
	t.Helper()
	return testutil.CreateUser(t, env.db, name, email, role)
}
