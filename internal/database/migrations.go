package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

var indexes = []index{
	// Project listing per user
	{"projects", "idx_projects_created_by_deleted", "created_by, is_deleted"},
	{"projects", "idx_projects_admin_id", "admin_id"},
	{"project_members", "idx_project_members_user_id", "user_id"},

	// Task filtering
	{"tasks", "idx_tasks_project_status", "project_id, status"},
	{"tasks", "idx_tasks_assigned_to", "assigned_to"},
	{"tasks", "idx_tasks_created_at", "created_at"},

	// Invite listing and expiry
	{"invites", "idx_invites_email_status", "email, status"},
	{"invites", "idx_invites_expires_at", "expires_at"},
}

// AddIndexes adds performance-critical indexes that struct tags do not declare.
func AddIndexes(db *gorm.DB, log logrus.FieldLogger) error {
	migrator := db.Migrator()

	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(logrus.Fields{
			"index":   idx.name,
			"table":   idx.table,
			"columns": idx.columns,
		}).Info("Created index")
	}

	return nil
}

// MigrateDatabase runs schema migrations and then adds indexes
func MigrateDatabase(db *gorm.DB, log logrus.FieldLogger) error {
	if err := Migrate(db, log); err != nil {
		return err
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
