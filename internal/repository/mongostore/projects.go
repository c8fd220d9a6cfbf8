package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProjectRepository implements repository.ProjectRepository with embedded team members
type ProjectRepository struct {
	collection *mongo.Collection
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	for i := range project.TeamMembers {
		project.TeamMembers[i].ProjectID = project.ID
	}
	if project.TeamMembers == nil {
		project.TeamMembers = []models.ProjectMember{}
	}

	_, err := r.collection.InsertOne(ctx, project)
	return translateError(err)
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}

	project, err := findOne[models.Project](ctx, r.collection, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	stampMembers(project)
	return project, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	filter := bson.M{
		"isDeleted": false,
		"$or": bson.A{
			bson.M{"createdBy": userID},
			bson.M{"admin": userID},
			bson.M{"teamMembers.userId": userID},
		},
	}

	projects, err := findAll[models.Project](ctx, r.collection, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	for i := range projects {
		stampMembers(&projects[i])
	}
	return projects, nil
}

// Update sets the own fields of a live project; teamMembers is only changed by AddMember and RemoveMember.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": project.ID, "isDeleted": false}, bson.M{
		"$set": bson.M{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"admin":       project.AdminID,
			"updatedAt":   project.UpdatedAt,
		},
	})
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleState
	}
	return nil
}

func (r *ProjectRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleState
	}
	return nil
}

// AddMember pushes the member only if no element with the same userId exists.
func (r *ProjectRepository) AddMember(ctx context.Context, projectID string, member models.ProjectMember) error {
	member.ProjectID = projectID
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": projectID, "teamMembers.userId": bson.M{"$ne": member.UserID}},
		bson.M{
			"$push": bson.M{"teamMembers": member},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		// Either the project is gone or the user is already a member.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": projectID})
		if err != nil {
			return translateError(err)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrDuplicate
	}
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{
			"$pull": bson.M{"teamMembers": bson.M{"userId": userID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return translateError(err)
}

// stampMembers restores the ProjectID of embedded members, which is not stored.
func stampMembers(project *models.Project) {
	for i := range project.TeamMembers {
		project.TeamMembers[i].ProjectID = project.ID
	}
}
