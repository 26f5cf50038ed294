// internal/app/policy/projectpolicy/projectpolicy.go

// Package projectpolicy is the single authorization decision point every
// state-changing operation consults before it reaches persistence.
//
// Decide is deterministic and side-effect free: it composes the role
// capability table with the task-relationship rules and returns an
// Allow/Deny decision with a stable reason code. Hosts use the code for
// API responses; tests assert on it directly.
package projectpolicy

import (
	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action names a project-scoped operation.
type Action string

const (
	ActionViewProject    Action = "project.view"
	ActionManageSettings Action = "project.manage_settings"
	ActionDeleteProject  Action = "project.delete"

	ActionManageMembers Action = "members.manage"
	ActionAssignRole    Action = "members.assign_role"

	ActionCreateTask     Action = "task.create"
	ActionUpdateTask     Action = "task.update"
	ActionDeleteTask     Action = "task.delete"
	ActionUpdateProgress Action = "task.update_progress"
	ActionAssignTask     Action = "task.assign"

	ActionGenerateInvite Action = "invite.generate"
)

// Deny reason codes. Stable; safe for API responses and test assertions.
const (
	ReasonNotMember       = "not_a_member"
	ReasonRoleForbids     = "role_forbids"
	ReasonNotTaskCreator  = "not_task_creator"
	ReasonNotTaskAssignee = "not_task_assignee"
	ReasonUnknownAction   = "unknown_action"
	ReasonInvalidRole     = "invalid_role"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  string // set on deny
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Decide reports whether the actor may perform action on the project. For
// task-scoped actions the target task must be supplied; its creator and
// assignee relationships participate in the decision.
func Decide(actorID primitive.ObjectID, members []models.Membership, action Action, target *models.Task) Decision {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		// Membership is a precondition for every action, regardless of
		// what any role's capability table would grant.
		return deny(ReasonNotMember)
	}
	caps, err := roles.CapabilitiesOf(actor.Role)
	if err != nil {
		return deny(ReasonInvalidRole)
	}

	switch action {
	case ActionViewProject:
		return allow()

	case ActionManageSettings, ActionDeleteProject:
		if caps.ManageSettings {
			return allow()
		}
		return deny(ReasonRoleForbids)

	case ActionManageMembers, ActionGenerateInvite:
		if caps.ManageMembers {
			return allow()
		}
		return deny(ReasonRoleForbids)

	case ActionAssignRole:
		if caps.AssignRoles {
			return allow()
		}
		return deny(ReasonRoleForbids)

	case ActionCreateTask:
		if caps.CreateTask {
			return allow()
		}
		return deny(ReasonRoleForbids)

	case ActionUpdateTask:
		if caps.EditAnyTask {
			return allow()
		}
		if caps.EditOwnTask && target != nil && target.CreatorID == actorID {
			return allow()
		}
		if caps.EditOwnTask {
			return deny(ReasonNotTaskCreator)
		}
		return deny(ReasonRoleForbids)

	case ActionDeleteTask:
		if caps.DeleteAnyTask {
			return allow()
		}
		if caps.DeleteOwnTask && target != nil && target.CreatorID == actorID {
			return allow()
		}
		if caps.DeleteOwnTask {
			return deny(ReasonNotTaskCreator)
		}
		return deny(ReasonRoleForbids)

	case ActionUpdateProgress:
		if actor.Role == roles.Administrator {
			return allow()
		}
		if caps.UpdateProgressIfCreatorOrAssignee && target != nil &&
			(target.CreatorID == actorID || target.AssignedTo(actorID)) {
			return allow()
		}
		if caps.UpdateProgressIfCreatorOrAssignee {
			return deny(ReasonNotTaskAssignee)
		}
		return deny(ReasonRoleForbids)

	case ActionAssignTask:
		if caps.AssignRoles {
			return allow()
		}
		return deny(ReasonRoleForbids)
	}

	// Unlisted actions are denied. Authorization is allowlist-only.
	return deny(ReasonUnknownAction)
}
