// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress is the task's lifecycle state. The three states are ordered for
// display, but transitions between them are unrestricted.
type Progress string

const (
	ProgressToDo       Progress = "To Do"
	ProgressInProgress Progress = "In Progress"
	ProgressCompleted  Progress = "Completed"
)

// ValidProgress reports whether p is one of the three lifecycle states.
func ValidProgress(p Progress) bool {
	switch p {
	case ProgressToDo, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// ProgressEntry is one row of a task's append-only progress history.
type ProgressEntry struct {
	Progress  Progress           `bson:"progress" json:"progress"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updated_by"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Task is an independent aggregate referenced by its project's task list.
//
// NOTE:
//   - CreatorID is immutable after creation.
//   - AssigneeID is nil until an administrator assigns the task.
//   - History is append-only; entries are never mutated or truncated.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID  `bson:"project_id" json:"project_id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Description string              `bson:"description" json:"description"`
	Deadline    time.Time           `bson:"deadline" json:"deadline"`
	CreatorID   primitive.ObjectID  `bson:"creator_id" json:"creator_id"`
	AssigneeID  *primitive.ObjectID `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	Progress    Progress            `bson:"progress" json:"progress"`
	History     []ProgressEntry     `bson:"progress_history" json:"progress_history"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AssignedTo reports whether the task is assigned to the given user.
func (t Task) AssignedTo(userID primitive.ObjectID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
