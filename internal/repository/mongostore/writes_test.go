package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testID = "6b0e3b52-8f3c-4d0e-9b1f-1f8b7e0d2a10"

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func countResponse(mt *mtest.T, n int) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestInviteTransition(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matches on current status", func(mt *mtest.T) {
		repo := &InviteRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		userID := "7d0b5f5e-4c8a-4f5e-9a55-2f0d9e1b7c31"
		at := time.Now()
		err := repo.Transition(context.Background(), testID, models.InviteStatusPending, models.InviteStatusAccepted,
			repository.InviteTransition{AcceptedBy: &userID, AcceptedAt: &at})
		require.NoError(mt, err)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, testID, cmd.Lookup("updates", "0", "q", "_id").StringValue())
		assert.Equal(mt, string(models.InviteStatusPending), cmd.Lookup("updates", "0", "q", "status").StringValue())
		assert.Equal(mt, string(models.InviteStatusAccepted), cmd.Lookup("updates", "0", "u", "$set", "status").StringValue())
		assert.Equal(mt, userID, cmd.Lookup("updates", "0", "u", "$set", "acceptedBy").StringValue())
		_, err = cmd.LookupErr("updates", "0", "u", "$unset", "pendingEmail")
		assert.NoError(mt, err)
	})

	mt.Run("lost race", func(mt *mtest.T) {
		repo := &InviteRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))

		err := repo.Transition(context.Background(), testID, models.InviteStatusPending, models.InviteStatusRevoked,
			repository.InviteTransition{})
		assert.ErrorIs(mt, err, repository.ErrStaleState)
	})

	mt.Run("terminal source never reaches the server", func(mt *mtest.T) {
		repo := &InviteRepository{collection: mt.Coll}

		err := repo.Transition(context.Background(), testID, models.InviteStatusRevoked, models.InviteStatusAccepted,
			repository.InviteTransition{})
		assert.ErrorIs(mt, err, repository.ErrStaleState)
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestProjectAddMember(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	member := models.ProjectMember{UserID: "7d0b5f5e-4c8a-4f5e-9a55-2f0d9e1b7c31", Role: models.MemberRoleMember, JoinedAt: time.Now()}

	mt.Run("pushes when absent", func(mt *mtest.T) {
		repo := &ProjectRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		require.NoError(mt, repo.AddMember(context.Background(), testID, member))

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, member.UserID, cmd.Lookup("updates", "0", "q", "teamMembers.userId", "$ne").StringValue())
		assert.Equal(mt, member.UserID, cmd.Lookup("updates", "0", "u", "$push", "teamMembers", "userId").StringValue())
	})

	mt.Run("already a member", func(mt *mtest.T) {
		repo := &ProjectRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0), countResponse(mt, 1))

		assert.ErrorIs(mt, repo.AddMember(context.Background(), testID, member), repository.ErrDuplicate)
	})

	mt.Run("missing project", func(mt *mtest.T) {
		repo := &ProjectRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0), countResponse(mt, 0))

		assert.ErrorIs(mt, repo.AddMember(context.Background(), testID, member), repository.ErrNotFound)
	})
}

func TestProjectUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	project := &models.Project{ID: testID, Name: "Apollo", Status: models.ProjectStatusActive, AdminID: "a"}

	mt.Run("live project", func(mt *mtest.T) {
		repo := &ProjectRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		require.NoError(mt, repo.Update(context.Background(), project))

		cmd := mt.GetStartedEvent().Command
		assert.False(mt, cmd.Lookup("updates", "0", "q", "isDeleted").Boolean())
		assert.Equal(mt, "Apollo", cmd.Lookup("updates", "0", "u", "$set", "name").StringValue())
		_, err := cmd.LookupErr("updates", "0", "u", "$set", "teamMembers")
		assert.Error(mt, err)
	})

	mt.Run("deleted meanwhile", func(mt *mtest.T) {
		repo := &ProjectRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))

		assert.ErrorIs(mt, repo.Update(context.Background(), project), repository.ErrStaleState)
	})
}

func TestUserTargetedUpdates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("status only", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		require.NoError(mt, repo.SetStatus(context.Background(), testID, models.UserStatusInactive))

		set := mt.GetStartedEvent().Command.Lookup("updates", "0", "u", "$set").Document()
		assert.Equal(mt, string(models.UserStatusInactive), set.Lookup("status").StringValue())
		_, err := set.LookupErr("name")
		assert.Error(mt, err)
		_, err = set.LookupErr("role")
		assert.Error(mt, err)
	})

	mt.Run("login of deactivated user", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))

		err := repo.TouchLastLogin(context.Background(), testID, time.Now())
		assert.ErrorIs(mt, err, repository.ErrStaleState)
		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, string(models.UserStatusActive), cmd.Lookup("updates", "0", "q", "status").StringValue())
	})

	mt.Run("clear invite", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		require.NoError(mt, repo.ClearInvite(context.Background(), testID))

		u := mt.GetStartedEvent().Command.Lookup("updates", "0", "u").Document()
		assert.Equal(mt, string(models.RoleStaff), u.Lookup("$set", "role").StringValue())
		_, err := u.LookupErr("$unset", "inviteId")
		assert.NoError(mt, err)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))

		assert.ErrorIs(mt, repo.UpdateName(context.Background(), testID, "Alicia"), repository.ErrNotFound)
	})
}

func TestTaskUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("clears unassigned fields", func(mt *mtest.T) {
		repo := &TaskRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(1))

		task := &models.Task{ID: testID, Title: "Ship", Status: models.TaskStatusTodo, Priority: models.TaskPriorityHigh}
		require.NoError(mt, repo.Update(context.Background(), task))

		cmd := mt.GetStartedEvent().Command
		assert.False(mt, cmd.Lookup("updates", "0", "q", "isDeleted").Boolean())
		_, err := cmd.LookupErr("updates", "0", "u", "$unset", "assignedTo")
		assert.NoError(mt, err)
		_, err = cmd.LookupErr("updates", "0", "u", "$set", "createdBy")
		assert.Error(mt, err)
	})

	mt.Run("deleted meanwhile", func(mt *mtest.T) {
		repo := &TaskRepository{collection: mt.Coll}
		mt.AddMockResponses(updated(0))

		task := &models.Task{ID: testID, Title: "Ship"}
		assert.ErrorIs(mt, repo.Update(context.Background(), task), repository.ErrNotFound)
	})
}

func TestTaskSoftDeleteOrphaned(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("cascades deleted projects", func(mt *mtest.T) {
		repo := &TaskRepository{collection: mt.Coll, projects: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p1"}},
				bson.D{{Key: "_id", Value: "p2"}},
			),
			updated(3),
		)

		changed, err := repo.SoftDeleteOrphaned(context.Background(), time.Now())
		require.NoError(mt, err)
		assert.EqualValues(mt, 3, changed)

		find := mt.GetStartedEvent()
		require.NotNil(mt, find)
		assert.Equal(mt, "find", find.CommandName)
		assert.True(mt, find.Command.Lookup("filter", "isDeleted").Boolean())

		update := mt.GetStartedEvent()
		require.NotNil(mt, update)
		ids := update.Command.Lookup("updates", "0", "q", "projectId", "$in").Array()
		values, err := ids.Values()
		require.NoError(mt, err)
		assert.Len(mt, values, 2)
	})

	mt.Run("nothing deleted", func(mt *mtest.T) {
		repo := &TaskRepository{collection: mt.Coll, projects: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		changed, err := repo.SoftDeleteOrphaned(context.Background(), time.Now())
		require.NoError(mt, err)
		assert.Zero(mt, changed)
	})
}
