// Package mongostore implements the repository interfaces on MongoDB.
//
// Projects embed their team members, so membership changes are single-document
// atomic updates. Pending-invite uniqueness relies on a sparse unique index over
// pendingEmail, which is unset whenever an invite leaves PENDING.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	tasksCollection    = "tasks"
	invitesCollection  = "invites"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ProjectRepository = (*ProjectRepository)(nil)
	_ repository.TaskRepository    = (*TaskRepository)(nil)
	_ repository.InviteRepository  = (*InviteRepository)(nil)
)

// New creates MongoDB-backed repositories on db.
func New(db *mongo.Database) *repository.Repositories {
	return &repository.Repositories{
		Users:    &UserRepository{collection: db.Collection(usersCollection)},
		Projects: &ProjectRepository{collection: db.Collection(projectsCollection)},
		Tasks:    &TaskRepository{collection: db.Collection(tasksCollection), projects: db.Collection(projectsCollection)},
		Invites:  &InviteRepository{collection: db.Collection(invitesCollection)},
	}
}

// EnsureIndexes creates the unique and query indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "inviteId", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "isDeleted", Value: 1}}},
			{Keys: bson.D{{Key: "admin", Value: 1}}},
			{Keys: bson.D{{Key: "teamMembers.userId", Value: 1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		},
		invitesCollection: {
			{Keys: bson.D{{Key: "inviteToken", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "pendingEmail", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
		},
	}

	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translateError normalises driver errors to the repository errors.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	if err := collection.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, collection *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, translateError(err)
	}

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translateError(err)
	}
	return docs, nil
}
