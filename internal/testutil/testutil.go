// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestJWTSecret is long enough to pass config validation.
const TestJWTSecret = "test-secret-key-0123456789abcdef-xyz"

// OpenTestDB returns a migrated in-memory SQLite database closed at test cleanup.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.MigrateDatabase(db, logger.Discard()))
	return db
}

// CreateUser inserts an active user with a placeholder password digest.
func CreateUser(t *testing.T, db *gorm.DB, name, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Name:         name,
		Email:        models.NormalizeEmail(email),
		PasswordHash: "hashed",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProject inserts a live project administered by its creator.
func CreateProject(t *testing.T, db *gorm.DB, name string, creator *models.User) *models.Project {
	t.Helper()

	project := &models.Project{
		Name:      name,
		Status:    models.ProjectStatusActive,
		CreatedBy: creator.ID,
		AdminID:   creator.ID,
	}
	require.NoError(t, db.Omit("TeamMembers").Create(project).Error)

	member := models.ProjectMember{
		ProjectID: project.ID,
		UserID:    creator.ID,
		Role:      models.MemberRoleAdmin,
		JoinedAt:  time.Now(),
	}
	require.NoError(t, db.Create(&member).Error)
	project.TeamMembers = []models.ProjectMember{member}
	return project
}
