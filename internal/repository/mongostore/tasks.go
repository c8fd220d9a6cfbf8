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

// TaskRepository implements repository.TaskRepository
type TaskRepository struct {
	collection *mongo.Collection
	projects   *mongo.Collection
}

// orphanBatchSize bounds the $in list of each cascade update.
const orphanBatchSize = 500

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, task)
	return translateError(err)
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	return findOne[models.Task](ctx, r.collection, bson.M{"_id": id, "isDeleted": false})
}

func taskFilter(filter repository.TaskFilter) bson.M {
	query := bson.M{"projectId": filter.ProjectID, "isDeleted": false}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Priority != nil {
		query["priority"] = *filter.Priority
	}
	if filter.AssignedTo != nil {
		query["assignedTo"] = *filter.AssignedTo
	}
	return query
}

func (r *TaskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]models.Task, int64, error) {
	query := taskFilter(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, translateError(err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset)).SetLimit(int64(filter.Limit))
	}

	tasks, err := findAll[models.Task](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update sets the editable fields of a live task.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	set := bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"updatedAt":   task.UpdatedAt,
	}
	unset := bson.M{}
	if task.AssignedTo != nil {
		set["assignedTo"] = *task.AssignedTo
	} else {
		unset["assignedTo"] = ""
	}
	if task.DueDate != nil {
		set["dueDate"] = *task.DueDate
	} else {
		unset["dueDate"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": task.ID, "isDeleted": false}, update)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func softDeleteUpdate(at time.Time) bson.M {
	return bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": at, "updatedAt": at}}
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "isDeleted": false}, softDeleteUpdate(at))
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) SoftDeleteByProjects(ctx context.Context, projectIDs []string, at time.Time) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"projectId": bson.M{"$in": projectIDs}, "isDeleted": false},
		softDeleteUpdate(at),
	)
	if err != nil {
		return 0, translateError(err)
	}
	return result.ModifiedCount, nil
}

// SoftDeleteOrphaned walks the deleted projects in batches so no single update carries an unbounded $in list.
func (r *TaskRepository) SoftDeleteOrphaned(ctx context.Context, at time.Time) (int64, error) {
	cursor, err := r.projects.Find(ctx, bson.M{"isDeleted": true},
		options.Find().SetProjection(bson.M{"_id": 1}).SetBatchSize(orphanBatchSize))
	if err != nil {
		return 0, translateError(err)
	}
	defer cursor.Close(ctx)

	var changed int64
	batch := make([]string, 0, orphanBatchSize)
	flush := func() error {
		n, err := r.SoftDeleteByProjects(ctx, batch, at)
		changed += n
		batch = batch[:0]
		return err
	}

	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return changed, translateError(err)
		}
		batch = append(batch, doc.ID)
		if len(batch) == orphanBatchSize {
			if err := flush(); err != nil {
				return changed, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return changed, translateError(err)
	}
	if err := flush(); err != nil {
		return changed, err
	}
	return changed, nil
}
