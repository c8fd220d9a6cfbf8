package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"github.com/yukikurage/project-management-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type blockingLimiter struct{}

func (blockingLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return false, time.Minute, nil
}

type ServerTestSuite struct {
	suite.Suite
	engine *gin.Engine
	db     *gorm.DB
	tokens *security.TokenManager
	repos  *repository.Repositories
	deps   Dependencies
}

func (suite *ServerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	validation.Register()
}

func (suite *ServerTestSuite) SetupTest() {
	suite.db = testutil.OpenTestDB(suite.T())
	suite.repos = repository.NewGormRepositories(suite.db)
	suite.tokens = security.NewTokenManager(testutil.TestJWTSecret, 15*time.Minute, 7*24*time.Hour)

	suite.deps = Dependencies{
		Config: &config.Config{
			AppEnv:    "test",
			InviteTTL: 7 * 24 * time.Hour,
		},
		Logger:   logger.Discard(),
		Repos:    suite.repos,
		Tokens:   suite.tokens,
		Hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		Sessions: cookie.NewStore([]byte("secret")),
	}
	suite.engine = New(suite.deps)
}

func (suite *ServerTestSuite) do(method, url, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		suite.Require().NoError(err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)

	var out map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func (suite *ServerTestSuite) register(name, email string) dto.AuthDTO {
	w, out := suite.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "Secret123!",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, out["message"])

	raw, err := json.Marshal(out["data"])
	suite.Require().NoError(err)
	var auth dto.AuthDTO
	suite.Require().NoError(json.Unmarshal(raw, &auth))
	return auth
}

func (suite *ServerTestSuite) TestMetaRoutes() {
	w, out := suite.do(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("API is healthy", out["message"])
	suite.NotEmpty(out["timestamp"])

	w, out = suite.do(http.MethodGet, "/", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(Version, out["version"])

	w, out = suite.do(http.MethodGet, "/api/nothing", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Route GET /api/nothing not found", out["message"])
}

func (suite *ServerTestSuite) TestProtectedRoutesRequireToken() {
	for _, url := range []string{"/api/auth/profile", "/api/users", "/api/projects", "/api/users/invites"} {
		w, out := suite.do(http.MethodGet, url, "", nil)
		suite.Equal(http.StatusUnauthorized, w.Code, url)
		suite.Equal(false, out["success"], url)
	}
}

func (suite *ServerTestSuite) TestPublicInviteStatus() {
	w, out := suite.do(http.MethodGet, "/api/users/invites/status?inviteToken=unknown", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Invite not found or has been revoked", out["message"])
}

func (suite *ServerTestSuite) TestProjectAndTaskFlow() {
	alice := suite.register("Alice", "alice@example.com")
	bob := suite.register("Bob", "bob@example.com")

	w, out := suite.do(http.MethodPost, "/api/projects", alice.AccessToken, map[string]string{"name": "Apollo"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	projectID := out["data"].(map[string]interface{})["id"].(string)

	w, _ = suite.do(http.MethodGet, "/api/projects/"+projectID, bob.AccessToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodPost, "/api/projects/"+projectID+"/team-members", alice.AccessToken, map[string]string{"userId": bob.User.ID})
	suite.Require().Equal(http.StatusOK, w.Code)

	w, out = suite.do(http.MethodPost, "/api/projects/"+projectID+"/tasks", bob.AccessToken, map[string]interface{}{
		"title":      "Launch",
		"assignedTo": alice.User.ID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := out["data"].(map[string]interface{})["id"].(string)

	w, _ = suite.do(http.MethodPatch, "/api/tasks/"+taskID, alice.AccessToken, map[string]string{"status": "DONE"})
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodDelete, "/api/projects/"+projectID, alice.AccessToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodGet, "/api/tasks/"+taskID, alice.AccessToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ServerTestSuite) TestAdminRoutes() {
	staff := suite.register("Staff", "staff@example.com")

	w, _ := suite.do(http.MethodGet, "/api/users", staff.AccessToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.do(http.MethodGet, "/api/users/"+staff.User.ID, staff.AccessToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	admin := testutil.CreateUser(suite.T(), suite.db, "Admin", "admin@example.com", models.RoleAdmin)
	pair, err := suite.tokens.Issue(admin)
	suite.Require().NoError(err)

	w, out := suite.do(http.MethodGet, "/api/users?limit=1", pair.AccessToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(float64(2), out["pagination"].(map[string]interface{})["total"])

	w, _ = suite.do(http.MethodPatch, "/api/users/"+staff.User.ID+"/role", pair.AccessToken, map[string]string{"role": "MANAGER"})
	suite.Equal(http.StatusOK, w.Code)

	w, out = suite.do(http.MethodPost, "/api/users/invites/create", pair.AccessToken, map[string]string{"email": "new@example.com", "role": "STAFF"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	token := out["data"].(map[string]interface{})["inviteToken"].(string)

	w, out = suite.do(http.MethodGet, "/api/users/invites/status?inviteToken="+token, "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("new@example.com", out["data"].(map[string]interface{})["email"])
}

func (suite *ServerTestSuite) TestLoginRateLimited() {
	suite.deps.Limiter = blockingLimiter{}
	suite.engine = New(suite.deps)

	w, out := suite.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "a@x.com",
		"password": "whatever",
	})
	suite.Equal(http.StatusTooManyRequests, w.Code)
	suite.Equal("Too many login attempts. Please try again later.", out["message"])
	suite.NotEmpty(w.Header().Get("Retry-After"))
}

func (suite *ServerTestSuite) TestRefreshToken() {
	auth := suite.register("Alice", "alice@example.com")

	w, out := suite.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": auth.RefreshToken})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("Token refreshed", out["message"])

	// An access token is not accepted for refresh.
	w, _ = suite.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": auth.AccessToken})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
