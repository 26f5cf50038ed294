// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectSettings are per-project feature toggles.
type ProjectSettings struct {
	// JoinByLinkEnabled gates invite-link resolution and consumption.
	// When false, even a structurally valid token behaves as unknown.
	JoinByLinkEnabled bool `bson:"join_by_link_enabled" json:"join_by_link_enabled"`

	// PDFGenerationEnabled toggles report export for the project.
	PDFGenerationEnabled bool `bson:"pdf_generation_enabled" json:"pdf_generation_enabled"`
}

// Project is the top-level collaboration container.
//
// NOTE:
//   - Member lists are not embedded on Project. All membership is stored
//     in the memberships collection.
//   - TaskIDs is the authoritative list of tasks attached to the project.
//     Task documents exist independently in the tasks collection so they
//     can be looked up by id; removing a task must update both places.
//   - OwnerID records the creator and is informational. Authorization is
//     role-driven, not owner-driven.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Settings    ProjectSettings    `bson:"settings" json:"settings"`

	TaskIDs []primitive.ObjectID `bson:"task_ids" json:"task_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasTask reports whether id is in the project's task list.
func (p Project) HasTask(id primitive.ObjectID) bool {
	for _, tid := range p.TaskIDs {
		if tid == id {
			return true
		}
	}
	return false
}
