// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TokenLength is the length of the invite token in bytes
// (32 bytes = 64 hex chars).
const TokenLength = 32

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invite_links")}
}

// Create generates a new invite link for the project. Existing links stay
// active; an administrator disables them individually.
func (s *Store) Create(ctx context.Context, projectID, createdBy primitive.ObjectID) (models.InviteLink, error) {
	token, err := newToken()
	if err != nil {
		return models.InviteLink{}, err
	}
	link := models.InviteLink{
		ID:        primitive.NewObjectID(),
		PublicID:  uuid.NewString(),
		ProjectID: projectID,
		CreatedBy: createdBy,
		Token:     token,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, link); err != nil {
		return models.InviteLink{}, err
	}
	return link, nil
}

// FindActiveByToken resolves a token to its link. Unknown and disabled
// tokens are indistinguishable to the caller.
func (s *Store) FindActiveByToken(ctx context.Context, token string) (models.InviteLink, error) {
	var link models.InviteLink
	err := s.c.FindOne(ctx, bson.M{"token": token, "active": true}).Decode(&link)
	if err == mongo.ErrNoDocuments {
		return models.InviteLink{}, faults.NotFound("Invalid or disabled invite link")
	}
	if err != nil {
		return models.InviteLink{}, err
	}
	return link, nil
}

// Disable deactivates the link identified by its public id.
func (s *Store) Disable(ctx context.Context, projectID primitive.ObjectID, publicID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"public_id": publicID, "project_id": projectID},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return faults.NotFound("invite link not found")
	}
	return nil
}

// ListByProject returns all links of the project, active or not.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.InviteLink, error) {
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var links []models.InviteLink
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// DeleteByProject removes all links of a project. Returns the number of
// documents deleted.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// newToken returns an unguessable hex token.
func newToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
