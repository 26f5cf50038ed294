// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists tasks. A task lives in the tasks collection and is
// referenced from its project's task_ids list; Create and Delete keep the
// two in step inside one write unit.
type Store struct {
	c        *mongo.Collection
	projects *mongo.Collection
	client   *mongo.Client
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("tasks"),
		projects: db.Collection("projects"),
		client:   db.Client(),
	}
}

// Create inserts the task and attaches it to its project's task list.
func (s *Store) Create(ctx context.Context, projectID primitive.ObjectID, name, description string, deadline time.Time, creatorID primitive.ObjectID) (models.Task, error) {
	now := time.Now().UTC()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		ProjectID:   projectID,
		Name:        name,
		NameCI:      text.Fold(name),
		Description: description,
		Deadline:    deadline,
		CreatorID:   creatorID,
		Progress:    models.ProgressToDo,
		History: []models.ProgressEntry{{
			Progress:  models.ProgressToDo,
			UpdatedBy: creatorID,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		res, err := s.projects.UpdateOne(ctx,
			bson.M{"_id": projectID},
			bson.M{"$addToSet": bson.M{"task_ids": task.ID}, "$set": bson.M{"updated_at": now}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return faults.NotFound("project not found")
		}
		_, err = s.c.InsertOne(ctx, task)
		return err
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// GetByID returns the task with the given id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return models.Task{}, faults.NotFound("task not found")
	}
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Fields holds the optional columns of a task update. Nil fields are left
// untouched. Progress is excluded: progress moves through AppendProgress
// so the history stays complete.
type Fields struct {
	Name        *string
	Description *string
	Deadline    *time.Time
}

// Update applies the supplied fields to the task.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, fields Fields) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if fields.Name != nil {
		set["name"] = *fields.Name
		set["name_ci"] = text.Fold(*fields.Name)
	}
	if fields.Description != nil {
		set["description"] = *fields.Description
	}
	if fields.Deadline != nil {
		set["deadline"] = *fields.Deadline
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("task not found")
	}
	return nil
}

// AppendProgress sets the task's progress and appends the history entry in
// one update. History is append-only; nothing here can shrink it.
func (s *Store) AppendProgress(ctx context.Context, id primitive.ObjectID, entry models.ProgressEntry) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  bson.M{"progress": entry.Progress, "updated_at": entry.Timestamp},
		"$push": bson.M{"progress_history": entry},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("task not found")
	}
	return nil
}

// SetAssignee assigns the task to the given user.
func (s *Store) SetAssignee(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"assignee_id": userID,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("task not found")
	}
	return nil
}

// Delete detaches the task from its project's task list and removes the
// task document as one logical operation. A detachment that reports zero
// modified documents means the project list and the task documents have
// drifted; that is surfaced as a consistency fault, never a silent
// success.
func (s *Store) Delete(ctx context.Context, projectID, taskID primitive.ObjectID) error {
	return txn.WithTxn(ctx, s.client, func(ctx context.Context) error {
		var p models.Project
		if err := s.projects.FindOne(ctx, bson.M{"_id": projectID}).Decode(&p); err != nil {
			if err == mongo.ErrNoDocuments {
				return faults.NotFound("project not found")
			}
			return err
		}
		if !p.HasTask(taskID) {
			return faults.NotFound("task is not part of this project")
		}

		res, err := s.projects.UpdateOne(ctx,
			bson.M{"_id": projectID},
			bson.M{"$pull": bson.M{"task_ids": taskID}, "$set": bson.M{"updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		if res.ModifiedCount == 0 {
			return faults.Consistency("Task was not removed from project")
		}

		del, err := s.c.DeleteOne(ctx, bson.M{"_id": taskID})
		if err != nil {
			return err
		}
		if del.DeletedCount == 0 {
			return faults.Consistency("task document was not deleted")
		}
		return nil
	})
}

// ListByProject returns all of the project's tasks.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListPage returns one keyset page of the project's tasks ordered by
// folded name. before/after are cursors from a previous page; both empty
// means the first page.
func (s *Store) ListPage(ctx context.Context, projectID primitive.ObjectID, before, after string) ([]models.Task, paging.Result, error) {
	filter := bson.M{"project_id": projectID}
	findOpts := options.Find()

	cfg := paging.ConfigureKeyset(before, after)
	cfg.ApplyToFind(findOpts, "name_ci")
	if window := cfg.KeysetWindow("name_ci"); window != nil {
		filter["$or"] = window["$or"]
	}

	cur, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, paging.Result{}, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, paging.Result{}, err
	}

	page := paging.TrimPage(&tasks, before, after)
	if before != "" {
		paging.Reverse(tasks)
	}
	return tasks, page, nil
}
