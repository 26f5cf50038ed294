// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c           *mongo.Collection
	memberships *mongo.Collection
	tasks       *mongo.Collection
	invites     *mongo.Collection
	client      *mongo.Client
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("projects"),
		memberships: db.Collection("memberships"),
		tasks:       db.Collection("tasks"),
		invites:     db.Collection("invite_links"),
		client:      db.Client(),
	}
}

// Create inserts the project and its creator's administrator membership as
// one unit, so a project is never observable without an administrator.
func (s *Store) Create(ctx context.Context, name, description string, ownerID primitive.ObjectID) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, faults.Validation("projectName", "Project name is required")
	}

	now := time.Now().UTC()
	project := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: description,
		OwnerID:     ownerID,
		Settings: models.ProjectSettings{
			JoinByLinkEnabled:    true,
			PDFGenerationEnabled: true,
		},
		TaskIDs:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	membership := models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: project.ID,
		UserID:    ownerID,
		Role:      roles.Administrator,
		CreatedAt: now,
	}

	err := txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, project); err != nil {
			return err
		}
		_, err := s.memberships.InsertOne(ctx, membership)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// GetByID returns the project with the given id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Project{}, faults.NotFound("project not found")
	}
	if err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// UpdateInfo changes the project's name and description.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return faults.Validation("projectName", "Project name is required")
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        name,
		"name_ci":     text.Fold(name),
		"description": description,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("project not found")
	}
	return nil
}

// UpdateSettings replaces the project's settings.
func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.ProjectSettings) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"settings":   settings,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("project not found")
	}
	return nil
}

// Delete removes the project and cascades to its tasks, memberships, and
// invite links in one unit.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return faults.NotFound("project not found")
		}
		if _, err := s.tasks.DeleteMany(ctx, bson.M{"project_id": id}); err != nil {
			return err
		}
		if _, err := s.memberships.DeleteMany(ctx, bson.M{"project_id": id}); err != nil {
			return err
		}
		_, err = s.invites.DeleteMany(ctx, bson.M{"project_id": id})
		return err
	})
}

// ListByIDs fetches the named projects in one query.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
