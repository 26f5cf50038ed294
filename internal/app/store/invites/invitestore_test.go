package invitestore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/testutil"
)

func TestCreateAndResolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()
	link, err := store.Create(ctx, projectID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(link.Token) != TokenLength*2 {
		t.Errorf("token length = %d, want %d hex chars", len(link.Token), TokenLength*2)
	}
	if link.PublicID == "" {
		t.Error("public id is empty")
	}
	if !link.Active {
		t.Error("new link is not active")
	}

	got, err := store.FindActiveByToken(ctx, link.Token)
	if err != nil {
		t.Fatalf("FindActiveByToken: %v", err)
	}
	if got.ProjectID != projectID {
		t.Errorf("resolved project = %s, want %s", got.ProjectID.Hex(), projectID.Hex())
	}
}

func TestFindActiveByTokenUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	_, err := store.FindActiveByToken(ctx, "no-such-token")
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
	if faults.Message(err) != "Invalid or disabled invite link" {
		t.Errorf("message = %q", faults.Message(err))
	}
}

func TestDisableStopsResolution(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()
	link, err := store.Create(ctx, projectID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Disable(ctx, projectID, link.PublicID); err != nil {
		t.Fatalf("Disable: %v", err)
	}

	if _, err := store.FindActiveByToken(ctx, link.Token); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("disabled token still resolves: %v", err)
	}

	// Disabled links remain listed for the project.
	links, err := store.ListByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(links) != 1 || links[0].Active {
		t.Errorf("ListByProject after disable = %+v", links)
	}
}

func TestDisableWrongProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	link, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = store.Disable(ctx, primitive.NewObjectID(), link.PublicID)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestDeleteByProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	projectID := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, projectID, primitive.NewObjectID()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := store.DeleteByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("DeleteByProject: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d links, want 3", n)
	}
	if _, err := store.FindActiveByToken(ctx, other.Token); err != nil {
		t.Errorf("unrelated project's link removed: %v", err)
	}
}
