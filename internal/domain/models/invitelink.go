// internal/domain/models/invitelink.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteLink grants default (developer) membership in its project to whoever
// consumes its token. Links stay usable until disabled; generating a new
// link does not disable earlier ones.
type InviteLink struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PublicID  string             `bson:"public_id" json:"public_id"` // UUID shown in admin listings
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	Token     string             `bson:"token" json:"-"` // opaque, unguessable
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
