// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists project memberships and enforces the last-administrator
// invariant at commit time. Mutations that depend on the administrator
// count run the read-validate-write sequence inside txn.WithTxn so two
// concurrent demotions cannot both observe a stale count; the memberpolicy
// validators are re-run against the in-transaction state, never a snapshot
// taken before the write section.
type Store struct {
	c      *mongo.Collection
	client *mongo.Client
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("memberships"),
		client: db.Client(),
	}
}

// ListByProject returns all memberships of the project.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.Membership
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// FindByProjectUser returns the membership binding userID to projectID.
func (s *Store) FindByProjectUser(ctx context.Context, projectID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"project_id": projectID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, faults.NotFound("membership not found in project")
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Add creates a membership after checking role validity. The unique
// (project_id, user_id) index backs the one-membership-per-user rule.
func (s *Store) Add(ctx context.Context, projectID, userID primitive.ObjectID, role roles.Role) (models.Membership, error) {
	if !roles.Valid(role) {
		return models.Membership{}, faults.InvalidRole(string(role))
	}
	m := models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, faults.Conflict("user is already a member of this project")
		}
		return models.Membership{}, err
	}
	return m, nil
}

// SetRole changes the target membership's role. The last-administrator
// check runs against the membership list read inside the write
// serialization.
func (s *Store) SetRole(ctx context.Context, projectID, targetMembershipID primitive.ObjectID, newRole roles.Role) error {
	return txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		members, err := s.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := memberpolicy.ValidateRoleChange(members, targetMembershipID, newRole); err != nil {
			return err
		}
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": targetMembershipID, "project_id": projectID},
			bson.M{"$set": bson.M{"role": newRole}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return faults.NotFound("membership not found in project")
		}
		return nil
	})
}

// Remove deletes the target membership, refusing to drop the project's
// only administrator.
func (s *Store) Remove(ctx context.Context, projectID, targetMembershipID primitive.ObjectID) error {
	return txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		members, err := s.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := memberpolicy.ValidateRemoval(members, targetMembershipID); err != nil {
			return err
		}
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": targetMembershipID, "project_id": projectID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return faults.NotFound("membership not found in project")
		}
		return nil
	})
}

// Leave removes the acting user's own membership under the same
// last-administrator rule.
func (s *Store) Leave(ctx context.Context, projectID, userID primitive.ObjectID) error {
	return txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		members, err := s.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		actor, ok := memberpolicy.FindByUser(members, userID)
		if !ok {
			return faults.NotFound("membership not found in project")
		}
		if err := memberpolicy.ValidateSelfLeave(members, actor.ID); err != nil {
			return err
		}
		_, err = s.c.DeleteOne(ctx, bson.M{"_id": actor.ID})
		return err
	})
}

// CountByProject returns the membership count, optionally filtered by role.
func (s *Store) CountByProject(ctx context.Context, projectID primitive.ObjectID, role roles.Role) (int64, error) {
	filter := bson.M{"project_id": projectID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}

// DeleteByProject removes all memberships of a project. Returns the number
// of documents deleted.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListProjectIDsByUser returns the ids of projects the user belongs to.
func (s *Store) ListProjectIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var m models.Membership
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		ids = append(ids, m.ProjectID)
	}
	return ids, cur.Err()
}
