package taskstore

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
)

func TestCreateAttachesTaskToProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)

	store := New(db)
	deadline := time.Now().UTC().AddDate(0, 0, 7)
	task, err := store.Create(ctx, project.ID, "Write docs", "Author the user guide", deadline, owner.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if task.Progress != models.ProgressToDo {
		t.Errorf("new task progress = %q, want %q", task.Progress, models.ProgressToDo)
	}
	if len(task.History) != 1 || task.History[0].Progress != models.ProgressToDo {
		t.Errorf("new task history = %+v", task.History)
	}

	var p models.Project
	if err := db.Collection("projects").FindOne(ctx, bson.M{"_id": project.ID}).Decode(&p); err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if !p.HasTask(task.ID) {
		t.Error("task id missing from project's task list")
	}
}

func TestCreateMissingProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	_, err := store.Create(ctx, primitive.NewObjectID(), "Orphan", "No project", time.Now().AddDate(0, 0, 1), primitive.NewObjectID())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestUpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)
	task := fx.CreateTask(ctx, project.ID, "Draft", owner.ID)

	store := New(db)
	name := "Draft v2"
	desc := "Revised scope"
	if err := store.Update(ctx, task.ID, Fields{Name: &name, Description: &desc}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != name || got.Description != desc {
		t.Errorf("after update: name=%q description=%q", got.Name, got.Description)
	}
	// Untouched fields keep their values.
	if !got.Deadline.Truncate(time.Second).Equal(task.Deadline.Truncate(time.Second)) {
		t.Errorf("deadline changed: %v -> %v", task.Deadline, got.Deadline)
	}
}

func TestAppendProgressKeepsHistoryAppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)
	task := fx.CreateTask(ctx, project.ID, "Draft", owner.ID)

	store := New(db)
	steps := []models.Progress{models.ProgressInProgress, models.ProgressCompleted, models.ProgressInProgress}
	for _, p := range steps {
		entry := models.ProgressEntry{Progress: p, UpdatedBy: owner.ID, Timestamp: time.Now().UTC()}
		if err := store.AppendProgress(ctx, task.ID, entry); err != nil {
			t.Fatalf("AppendProgress(%s): %v", p, err)
		}
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Progress != models.ProgressInProgress {
		t.Errorf("progress = %q", got.Progress)
	}
	// Initial entry plus the three appended ones, in order.
	if len(got.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(got.History))
	}
	want := []models.Progress{models.ProgressToDo, models.ProgressInProgress, models.ProgressCompleted, models.ProgressInProgress}
	for i, p := range want {
		if got.History[i].Progress != p {
			t.Errorf("history[%d] = %q, want %q", i, got.History[i].Progress, p)
		}
	}
}

func TestSetAssignee(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	dev := fx.CreateUser(ctx, "Dev", "dev@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)
	task := fx.CreateTask(ctx, project.ID, "Draft", owner.ID)

	store := New(db)
	if err := store.SetAssignee(ctx, task.ID, dev.ID); err != nil {
		t.Fatalf("SetAssignee: %v", err)
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.AssignedTo(dev.ID) {
		t.Errorf("assignee = %v, want %s", got.AssigneeID, dev.ID.Hex())
	}
}

func TestDeleteRemovesBothSides(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)
	task := fx.CreateTask(ctx, project.ID, "Draft", owner.ID)

	store := New(db)
	if err := store.Delete(ctx, project.ID, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.GetByID(ctx, task.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("task still readable after delete: %v", err)
	}
	var p models.Project
	if err := db.Collection("projects").FindOne(ctx, bson.M{"_id": project.ID}).Decode(&p); err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if p.HasTask(task.ID) {
		t.Error("task id still on project after delete")
	}
}

func TestDeleteDriftedTaskList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)

	// Inject drift: the project lists a task whose document never
	// existed. The detachment succeeds but the document delete cannot,
	// and the whole operation surfaces the inconsistency.
	ghost := primitive.NewObjectID()
	if _, err := db.Collection("projects").UpdateByID(ctx, project.ID,
		bson.M{"$push": bson.M{"task_ids": ghost}}); err != nil {
		t.Fatalf("inject drift: %v", err)
	}

	store := New(db)
	err := store.Delete(ctx, project.ID, ghost)
	if !errors.Is(err, faults.ErrConsistency) {
		t.Fatalf("got %v, want consistency fault", err)
	}
}

func TestDeleteUnknownTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	project := fx.CreateProject(ctx, "Alpha", owner.ID)

	store := New(db)
	err := store.Delete(ctx, project.ID, primitive.NewObjectID())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestDeleteMissingProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := New(db)
	err := store.Delete(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestListByProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateUser(ctx, "Owner", "owner@test.com")
	p1 := fx.CreateProject(ctx, "Alpha", owner.ID)
	p2 := fx.CreateProject(ctx, "Beta", owner.ID)
	fx.CreateTask(ctx, p1.ID, "One", owner.ID)
	fx.CreateTask(ctx, p1.ID, "Two", owner.ID)
	fx.CreateTask(ctx, p2.ID, "Other", owner.ID)

	store := New(db)
	list, err := store.ListByProject(ctx, p1.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d tasks, want 2", len(list))
	}
}
