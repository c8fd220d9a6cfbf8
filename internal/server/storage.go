package server

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/repository/mongostore"
)

// OpenRepositories connects the configured backend, prepares its schema and
// returns the repositories plus a function releasing the connection.
func OpenRepositories(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*repository.Repositories, func(), error) {
	if cfg.DBDriver == "mongo" {
		client, db, err := database.ConnectMongo(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}

		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
		}
		return mongostore.New(db), closeFn, nil
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if err := database.MigrateDatabase(db, log); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repository.NewGormRepositories(db), closeFn, nil
}
