package membershipstore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dalemusser/taskhub/internal/app/system/indexes"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	"github.com/dalemusser/taskhub/internal/testutil"
)

func TestAddAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	m1, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add administrator: %v", err)
	}
	if _, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Viewer); err != nil {
		t.Fatalf("Add viewer: %v", err)
	}

	members, err := store.ListByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	got, err := store.FindByProjectUser(ctx, projectID, m1.UserID)
	if err != nil {
		t.Fatalf("FindByProjectUser: %v", err)
	}
	if got.Role != roles.Administrator {
		t.Errorf("role = %q", got.Role)
	}
}

func TestAddRejectsDuplicateMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	store := New(db)
	projectID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	if _, err := store.Add(ctx, projectID, userID, roles.Developer); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	_, err := store.Add(ctx, projectID, userID, roles.Viewer)
	if !errors.Is(err, faults.ErrConflict) {
		t.Errorf("second Add: got %v, want conflict", err)
	}
}

func TestAddRejectsUnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	_, err := store.Add(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "owner")
	if !errors.Is(err, faults.ErrInvalidRole) {
		t.Errorf("got %v, want invalid role", err)
	}
}

func TestSetRoleRefusesDemotingSoleAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	admin, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Developer); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err = store.SetRole(ctx, projectID, admin.ID, roles.Developer)
	if !errors.Is(err, faults.ErrLastAdministrator) {
		t.Fatalf("demote sole admin: got %v, want last administrator", err)
	}

	// State must be untouched after the refusal.
	got, err := store.FindByProjectUser(ctx, projectID, admin.UserID)
	if err != nil {
		t.Fatalf("FindByProjectUser: %v", err)
	}
	if got.Role != roles.Administrator {
		t.Errorf("role after refused demotion = %q", got.Role)
	}
}

func TestSetRoleDemotionAfterSecondAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	first, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	dev, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Developer)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Promote the developer, then the original admin can step down.
	if err := store.SetRole(ctx, projectID, dev.ID, roles.Administrator); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := store.SetRole(ctx, projectID, first.ID, roles.Viewer); err != nil {
		t.Fatalf("demote after promotion: %v", err)
	}

	got, err := store.FindByProjectUser(ctx, projectID, first.UserID)
	if err != nil {
		t.Fatalf("FindByProjectUser: %v", err)
	}
	if got.Role != roles.Viewer {
		t.Errorf("role = %q, want viewer", got.Role)
	}
}

func TestSetRoleNoOpOnSoleAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	admin, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.SetRole(ctx, projectID, admin.ID, roles.Administrator); err != nil {
		t.Errorf("no-op role set: %v", err)
	}
}

func TestRemoveRefusesSoleAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	admin, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	dev, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Developer)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := store.Remove(ctx, projectID, admin.ID); !errors.Is(err, faults.ErrLastAdministrator) {
		t.Errorf("remove sole admin: got %v, want last administrator", err)
	}
	if err := store.Remove(ctx, projectID, dev.ID); err != nil {
		t.Errorf("remove developer: %v", err)
	}

	n, err := store.CountByProject(ctx, projectID, "")
	if err != nil {
		t.Fatalf("CountByProject: %v", err)
	}
	if n != 1 {
		t.Errorf("members remaining = %d, want 1", n)
	}
}

func TestLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()

	admin, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Administrator)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	dev, err := store.Add(ctx, projectID, primitive.NewObjectID(), roles.Developer)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := store.Leave(ctx, projectID, admin.UserID); !errors.Is(err, faults.ErrLastAdministrator) {
		t.Errorf("sole admin leaving: got %v, want last administrator", err)
	}
	if err := store.Leave(ctx, projectID, dev.UserID); err != nil {
		t.Errorf("developer leaving: %v", err)
	}
	if err := store.Leave(ctx, projectID, dev.UserID); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("leaving twice: got %v, want not found", err)
	}
}

func TestListProjectIDsByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	userID := primitive.NewObjectID()
	p1 := primitive.NewObjectID()
	p2 := primitive.NewObjectID()

	if _, err := store.Add(ctx, p1, userID, roles.Administrator); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, p2, userID, roles.Viewer); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ids, err := store.ListProjectIDsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListProjectIDsByUser: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d project ids, want 2", len(ids))
	}
}
