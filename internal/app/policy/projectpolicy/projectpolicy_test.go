package projectpolicy

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
)

type roster struct {
	adminID  primitive.ObjectID
	devID    primitive.ObjectID
	viewerID primitive.ObjectID
	members  []models.Membership
}

func newRoster() roster {
	r := roster{
		adminID:  primitive.NewObjectID(),
		devID:    primitive.NewObjectID(),
		viewerID: primitive.NewObjectID(),
	}
	r.members = []models.Membership{
		{ID: primitive.NewObjectID(), UserID: r.adminID, Role: roles.Administrator},
		{ID: primitive.NewObjectID(), UserID: r.devID, Role: roles.Developer},
		{ID: primitive.NewObjectID(), UserID: r.viewerID, Role: roles.Viewer},
	}
	return r
}

func TestDecideNonMemberIsDeniedEverything(t *testing.T) {
	r := newRoster()
	outsider := primitive.NewObjectID()
	actions := []Action{
		ActionViewProject, ActionManageSettings, ActionDeleteProject,
		ActionManageMembers, ActionAssignRole,
		ActionCreateTask, ActionUpdateTask, ActionDeleteTask,
		ActionUpdateProgress, ActionAssignTask, ActionGenerateInvite,
	}
	for _, a := range actions {
		d := Decide(outsider, r.members, a, nil)
		if d.Allowed {
			t.Errorf("%s: non-member allowed", a)
		}
		if d.Reason != ReasonNotMember {
			t.Errorf("%s: reason = %q, want %q", a, d.Reason, ReasonNotMember)
		}
	}
}

func TestDecideManagementActions(t *testing.T) {
	r := newRoster()
	for _, a := range []Action{ActionManageSettings, ActionDeleteProject, ActionManageMembers, ActionAssignRole, ActionGenerateInvite} {
		if d := Decide(r.adminID, r.members, a, nil); !d.Allowed {
			t.Errorf("%s: administrator denied (%s)", a, d.Reason)
		}
		if d := Decide(r.devID, r.members, a, nil); d.Allowed || d.Reason != ReasonRoleForbids {
			t.Errorf("%s: developer decision = %+v", a, d)
		}
		if d := Decide(r.viewerID, r.members, a, nil); d.Allowed || d.Reason != ReasonRoleForbids {
			t.Errorf("%s: viewer decision = %+v", a, d)
		}
	}
}

func TestDecideViewIsMembershipOnly(t *testing.T) {
	r := newRoster()
	for _, id := range []primitive.ObjectID{r.adminID, r.devID, r.viewerID} {
		if d := Decide(id, r.members, ActionViewProject, nil); !d.Allowed {
			t.Errorf("member denied view: %s", d.Reason)
		}
	}
}

func TestDecideTaskUpdate(t *testing.T) {
	r := newRoster()
	ownTask := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.devID}
	foreignTask := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.adminID}

	if d := Decide(r.adminID, r.members, ActionUpdateTask, ownTask); !d.Allowed {
		t.Errorf("administrator on any task: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionUpdateTask, ownTask); !d.Allowed {
		t.Errorf("developer on own task: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionUpdateTask, foreignTask); d.Allowed || d.Reason != ReasonNotTaskCreator {
		t.Errorf("developer on foreign task: %+v", d)
	}
	if d := Decide(r.viewerID, r.members, ActionUpdateTask, ownTask); d.Allowed || d.Reason != ReasonRoleForbids {
		t.Errorf("viewer: %+v", d)
	}
}

func TestDecideTaskDelete(t *testing.T) {
	r := newRoster()
	ownTask := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.devID}
	foreignTask := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.adminID}

	if d := Decide(r.devID, r.members, ActionDeleteTask, ownTask); !d.Allowed {
		t.Errorf("developer deleting own task: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionDeleteTask, foreignTask); d.Allowed || d.Reason != ReasonNotTaskCreator {
		t.Errorf("developer deleting foreign task: %+v", d)
	}
	if d := Decide(r.adminID, r.members, ActionDeleteTask, foreignTask); !d.Allowed {
		t.Errorf("administrator deleting any task: %s", d.Reason)
	}
}

func TestDecideProgress(t *testing.T) {
	r := newRoster()
	assigned := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.adminID, AssigneeID: &r.devID}
	created := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.devID}
	foreign := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.adminID}
	viewerAssigned := &models.Task{ID: primitive.NewObjectID(), CreatorID: r.adminID, AssigneeID: &r.viewerID}

	if d := Decide(r.adminID, r.members, ActionUpdateProgress, foreign); !d.Allowed {
		t.Errorf("administrator: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionUpdateProgress, assigned); !d.Allowed {
		t.Errorf("assignee: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionUpdateProgress, created); !d.Allowed {
		t.Errorf("creator on own unassigned task: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionUpdateProgress, foreign); d.Allowed || d.Reason != ReasonNotTaskAssignee {
		t.Errorf("developer on uninvolved task: %+v", d)
	}
	if d := Decide(r.viewerID, r.members, ActionUpdateProgress, viewerAssigned); d.Allowed || d.Reason != ReasonRoleForbids {
		t.Errorf("viewer assignee: %+v", d)
	}
}

func TestDecideTaskAssign(t *testing.T) {
	r := newRoster()
	if d := Decide(r.adminID, r.members, ActionAssignTask, nil); !d.Allowed {
		t.Errorf("administrator: %s", d.Reason)
	}
	if d := Decide(r.devID, r.members, ActionAssignTask, nil); d.Allowed || d.Reason != ReasonRoleForbids {
		t.Errorf("developer: %+v", d)
	}
}

func TestDecideUnknownActionDenied(t *testing.T) {
	r := newRoster()
	d := Decide(r.adminID, r.members, Action("task.archive"), nil)
	if d.Allowed || d.Reason != ReasonUnknownAction {
		t.Errorf("unknown action: %+v", d)
	}
}

func TestDecideCorruptRole(t *testing.T) {
	userID := primitive.NewObjectID()
	members := []models.Membership{{ID: primitive.NewObjectID(), UserID: userID, Role: "owner"}}
	d := Decide(userID, members, ActionCreateTask, nil)
	if d.Allowed || d.Reason != ReasonInvalidRole {
		t.Errorf("corrupt role: %+v", d)
	}
}
