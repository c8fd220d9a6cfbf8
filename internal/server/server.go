// Package server assembles the HTTP engine: middleware, services, handlers and routes.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/services"
)

const (
	Version        = "1.0.0"
	sessionMaxAge  = 7 * 24 * 60 * 60
	defaultBaseURL = "http://localhost:3000"
)

// Dependencies are the collaborators New wires into the engine.
// Limiter, AI and Notifier are optional.
type Dependencies struct {
	Config   *config.Config
	Logger   logrus.FieldLogger
	Repos    *repository.Repositories
	Tokens   *security.TokenManager
	Hasher   security.PasswordHasher
	Sessions sessions.Store
	Limiter  middleware.Limiter
	AI       *services.AIService
	Notifier services.InviteNotifier
	Clock    services.Clock
}

// New builds the gin engine serving the API.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger

	notifier := deps.Notifier
	if notifier == nil {
		notifier = services.NewLogNotifier(log, defaultBaseURL)
	}

	inviteService := services.NewInviteService(deps.Repos, notifier, log, cfg.InviteTTL, deps.Clock)
	authService := services.NewAuthService(deps.Repos.Users, inviteService, deps.Hasher, deps.Tokens, log, deps.Clock)
	userService := services.NewUserService(deps.Repos.Users, log)
	projectService := services.NewProjectService(deps.Repos, log, deps.Clock)
	taskService := services.NewTaskService(deps.Repos, projectService, deps.AI, log, deps.Clock)

	authHandler := handlers.NewAuthHandler(authService, deps.Tokens.AccessTTL(), cfg.IsProduction())
	userHandler := handlers.NewUserHandler(userService)
	inviteHandler := handlers.NewInviteHandler(inviteService, !cfg.IsProduction())
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorHandler(log, !cfg.IsProduction()))
	r.Use(middleware.Recovery())

	deps.Sessions.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.Sessions))

	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "API is healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "API Running",
			"version": Version,
		})
	})

	requireAuth := middleware.RequireAuth(deps.Tokens)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.LoginRateLimit(deps.Limiter, log), authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/profile", requireAuth, authHandler.GetProfile)
			auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
		}

		users := api.Group("/users")
		{
			// Public invite endpoints
			users.GET("/invites/status", inviteHandler.GetInviteStatus)
			users.POST("/invites/decline", inviteHandler.DeclineInvite)

			users.Use(requireAuth)
			users.GET("", userHandler.ListUsers)
			users.POST("/invites/create", inviteHandler.CreateInvite)
			users.GET("/invites", inviteHandler.ListInvites)
			users.DELETE("/invites/:inviteId", middleware.RequireUUIDParam("inviteId"), inviteHandler.RevokeInvite)

			user := users.Group("/:userId", middleware.RequireUUIDParam("userId"))
			user.GET("", userHandler.GetUser)
			user.PATCH("/status", userHandler.UpdateStatus)
			user.PATCH("/role", userHandler.UpdateRole)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)

			project := projects.Group("/:projectId", middleware.RequireUUIDParam("projectId"))
			project.GET("", projectHandler.GetProject)
			project.PATCH("", projectHandler.UpdateProject)
			project.DELETE("", projectHandler.DeleteProject)
			project.POST("/team-members", projectHandler.AddTeamMember)
			project.DELETE("/team-members/:memberId", middleware.RequireUUIDParam("memberId"), projectHandler.RemoveTeamMember)

			project.GET("/tasks", taskHandler.ListTasks)
			project.POST("/tasks", taskHandler.CreateTask)
			project.POST("/tasks/generate", taskHandler.GenerateTasks)
		}

		tasks := api.Group("/tasks/:taskId", requireAuth, middleware.RequireUUIDParam("taskId"))
		{
			tasks.GET("", taskHandler.GetTask)
			tasks.PATCH("", taskHandler.UpdateTask)
			tasks.DELETE("", taskHandler.DeleteTask)
		}
	}

	return r
}
