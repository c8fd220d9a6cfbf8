// Command seed fills an empty database with demo users, projects and invites.
package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/server"
	"github.com/yukikurage/project-management-api/internal/services"
)

const seedPassword = "Password123!"

type seedUser struct {
	name  string
	email string
	role  models.Role
}

var seedUsers = []seedUser{
	{name: "Admin User", email: "admin@example.com", role: models.RoleAdmin},
	{name: "Manager User", email: "manager@example.com", role: models.RoleManager},
	{name: "Staff User", email: "staff@example.com", role: models.RoleStaff},
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	repos, closeStorage, err := server.OpenRepositories(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer closeStorage()

	if _, err := repos.Users.FindByEmail(ctx, seedUsers[0].email); err == nil {
		log.Info("Database already seeded")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).Fatal("Failed to check existing data")
	}

	hasher := security.NewBcryptHasher(constants.BcryptCost)
	digest, err := hasher.Hash(seedPassword)
	if err != nil {
		log.WithError(err).Fatal("Failed to hash seed password")
	}

	users := make([]*models.User, len(seedUsers))
	for i, u := range seedUsers {
		user := &models.User{
			Name:         u.name,
			Email:        u.email,
			PasswordHash: digest,
			Role:         u.role,
			Status:       models.UserStatusActive,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			log.WithError(err).WithField("email", u.email).Fatal("Failed to create user")
		}
		users[i] = user
	}
	admin, manager, staff := users[0], users[1], users[2]

	projectService := services.NewProjectService(repos, log, nil)
	taskService := services.NewTaskService(repos, projectService, nil, log, nil)
	inviteService := services.NewInviteService(repos, services.NewLogNotifier(log, "http://localhost:3000"), log, cfg.InviteTTL, nil)

	managerCaller := authz.Caller{UserID: manager.ID, Role: manager.Role}
	website, err := projectService.Create(ctx, managerCaller, services.CreateProjectInput{
		Name:        "Website Redesign",
		Description: "Refresh the marketing site",
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create project")
	}
	if _, err := projectService.AddMember(ctx, managerCaller, website.ID, staff.ID, models.MemberRoleMember); err != nil {
		log.WithError(err).Fatal("Failed to add team member")
	}

	mobile, err := projectService.Create(ctx, authz.Caller{UserID: staff.ID, Role: staff.Role}, services.CreateProjectInput{
		Name:        "Mobile App",
		Description: "First release of the companion app",
		Status:      models.ProjectStatusOnHold,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create project")
	}

	for _, input := range []services.CreateTaskInput{
		{ProjectID: website.ID, Title: "Audit current pages", Priority: models.TaskPriorityHigh, AssignedTo: &staff.ID},
		{ProjectID: website.ID, Title: "Draft new navigation", Status: models.TaskStatusInProgress},
		{ProjectID: website.ID, Title: "Collect stakeholder feedback", Priority: models.TaskPriorityLow},
	} {
		if _, err := taskService.Create(ctx, managerCaller, input); err != nil {
			log.WithError(err).Fatal("Failed to create task")
		}
	}

	adminCaller := authz.Caller{UserID: admin.ID, Role: admin.Role}
	for _, input := range []services.CreateInviteInput{
		{Email: "newstaff@example.com", Role: models.RoleStaff, ProjectID: &website.ID},
		{Email: "newmanager@example.com", Role: models.RoleManager},
	} {
		if _, err := inviteService.Create(ctx, adminCaller, input); err != nil {
			log.WithError(err).Fatal("Failed to create invite")
		}
	}

	log.WithFields(logrus.Fields{
		"users":    len(users),
		"projects": []string{website.Name, mobile.Name},
		"password": seedPassword,
	}).Info("Seed data created")
}
