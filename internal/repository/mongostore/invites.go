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

// InviteRepository implements repository.InviteRepository
type InviteRepository struct {
	collection *mongo.Collection
}

func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	now := time.Now()
	invite.CreatedAt = now
	invite.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, invite)
	return translateError(err)
}

func (r *InviteRepository) FindByID(ctx context.Context, id string) (*models.Invite, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	return findOne[models.Invite](ctx, r.collection, bson.M{"_id": id})
}

func (r *InviteRepository) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	return findOne[models.Invite](ctx, r.collection, bson.M{"inviteToken": token})
}

func (r *InviteRepository) List(ctx context.Context, status *models.InviteStatus) ([]models.Invite, error) {
	filter := bson.M{}
	if status != nil {
		filter["status"] = *status
	}
	return findAll[models.Invite](ctx, r.collection, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *InviteRepository) ListPending(ctx context.Context) ([]models.Invite, error) {
	status := models.InviteStatusPending
	return r.List(ctx, &status)
}

// Transition matches on the current status so only one concurrent caller wins.
func (r *InviteRepository) Transition(ctx context.Context, id string, from, to models.InviteStatus, change repository.InviteTransition) error {
	if !from.CanTransitionTo(to) {
		return repository.ErrStaleState
	}

	set := bson.M{"status": to, "updatedAt": time.Now()}
	if change.AcceptedBy != nil {
		set["acceptedBy"] = *change.AcceptedBy
	}
	if change.AcceptedAt != nil {
		set["acceptedAt"] = *change.AcceptedAt
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set, "$unset": bson.M{"pendingEmail": ""}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleState
	}
	return nil
}
