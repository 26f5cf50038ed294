package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calls chain: an existing route context on the request is extended.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		rctx.URLParams.Add(key, value)
		return r
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a test account. The password hash is a placeholder;
// use the user store when a test needs a verifiable password.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		EmailCI:      text.Fold(email),
		PasswordHash: "test-hash",
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateProject inserts a project and an administrator membership for
// the owner, mirroring what the project store does on create.
func (f *Fixtures) CreateProject(ctx context.Context, name string, ownerID primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test project",
		OwnerID:     ownerID,
		Settings: models.ProjectSettings{
			JoinByLinkEnabled:    true,
			PDFGenerationEnabled: true,
		},
		TaskIDs:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	f.CreateMembership(ctx, p.ID, ownerID, roles.Administrator)
	return p
}

// CreateMembership inserts a membership row.
func (f *Fixtures) CreateMembership(ctx context.Context, projectID, userID primitive.ObjectID, role roles.Role) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateTask inserts a task and registers it on the project's task list,
// with the initial "To Do" history entry.
func (f *Fixtures) CreateTask(ctx context.Context, projectID primitive.ObjectID, name string, creatorID primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		ProjectID:   projectID,
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test task",
		Deadline:    now.AddDate(0, 0, 7),
		CreatorID:   creatorID,
		Progress:    models.ProgressToDo,
		History: []models.ProgressEntry{
			{Progress: models.ProgressToDo, UpdatedBy: creatorID, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	_, err := f.db.Collection("projects").UpdateByID(ctx, projectID,
		bson.M{"$addToSet": bson.M{"task_ids": task.ID}})
	if err != nil {
		f.t.Fatalf("failed to register test task on project: %v", err)
	}
	return task
}

// CreateInviteLink inserts an active invite link with a fixed-format
// token so tests can resolve it.
func (f *Fixtures) CreateInviteLink(ctx context.Context, projectID, createdBy primitive.ObjectID) models.InviteLink {
	f.t.Helper()

	l := models.InviteLink{
		ID:        primitive.NewObjectID(),
		PublicID:  uuid.NewString(),
		ProjectID: projectID,
		CreatedBy: createdBy,
		Token:     uuid.NewString() + uuid.NewString(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("invite_links").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test invite link: %v", err)
	}
	return l
}
