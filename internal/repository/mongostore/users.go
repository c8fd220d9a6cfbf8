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

// UserRepository implements repository.UserRepository
type UserRepository struct {
	collection *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = models.NormalizeEmail(user.Email)

	_, err := r.collection.InsertOne(ctx, user)
	return translateError(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	return findOne[models.User](ctx, r.collection, bson.M{"_id": id})
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findAll[models.User](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *UserRepository) FindByInviteID(ctx context.Context, inviteID string) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"inviteId": inviteID})
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, translateError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	users, err := findAll[models.User](ctx, r.collection, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.updateFields(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name}}, repository.ErrNotFound)
}

func (r *UserRepository) SetStatus(ctx context.Context, id string, status models.UserStatus) error {
	return r.updateFields(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}}, repository.ErrNotFound)
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.updateFields(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}}, repository.ErrNotFound)
}

func (r *UserRepository) ClearInvite(ctx context.Context, id string) error {
	return r.updateFields(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"role": models.RoleStaff},
		"$unset": bson.M{"inviteId": "", "invitedAt": ""},
	}, repository.ErrNotFound)
}

// TouchLastLogin only matches a user that is still active.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateFields(ctx,
		bson.M{"_id": id, "status": models.UserStatusActive},
		bson.M{"$set": bson.M{"lastLogin": at}},
		repository.ErrStaleState,
	)
}

// updateFields applies update to the matched user, stamping updatedAt, and returns missing when nothing matched.
func (r *UserRepository) updateFields(ctx context.Context, filter, update bson.M, missing error) error {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return missing
	}
	return nil
}
