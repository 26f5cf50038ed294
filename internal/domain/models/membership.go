// internal/domain/models/membership.go
package models

import (
	"time"

	"github.com/dalemusser/taskhub/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership is the authoritative join between users and projects.
// Exactly one document per (project_id, user_id); role is a scalar
// ("administrator" | "developer" | "viewer").
type Membership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      roles.Role         `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
