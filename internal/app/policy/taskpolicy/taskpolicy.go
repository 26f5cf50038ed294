// internal/app/policy/taskpolicy/taskpolicy.go

// Package taskpolicy holds the task lifecycle rules: field validation for
// creation and updates, and the per-operation authorization checks.
//
// Every function is pure and takes the acting user plus a fully-resolved
// membership list; non-members are denied before any capability is
// consulted.
package taskpolicy

import (
	"strings"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeadlineLayout is the wire format for task deadlines.
const DeadlineLayout = "2006-01-02"

// CreateInput carries the user-supplied fields for a new task.
type CreateInput struct {
	Name        string
	Description string
	Deadline    string
}

// ValidateCreate checks the create fields and returns the parsed deadline.
// The deadline must parse and must not lie strictly before now.
func ValidateCreate(in CreateInput, now time.Time) (time.Time, error) {
	if strings.TrimSpace(in.Name) == "" {
		return time.Time{}, faults.Validation("taskName", "Task name is required!")
	}
	if strings.TrimSpace(in.Description) == "" {
		return time.Time{}, faults.Validation("taskDescription", "Task description is required!")
	}
	deadline, err := ParseDeadline(in.Deadline, now)
	if err != nil {
		return time.Time{}, err
	}
	return deadline, nil
}

// ParseDeadline parses a deadline string and rejects dates in the past.
func ParseDeadline(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, faults.Validation("taskDeadline", "Task deadline is required!")
	}
	deadline, err := time.Parse(DeadlineLayout, s)
	if err != nil {
		return time.Time{}, faults.Validation("taskDeadline", "Task deadline must be a valid date!")
	}
	// Compare by calendar day so "today" is still acceptable.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if deadline.Before(today) {
		return time.Time{}, faults.Validation("taskDeadline", "Task deadline cannot be in the past!")
	}
	return deadline, nil
}

// AuthorizeCreate checks that the actor is a project member whose role
// grants task creation.
func AuthorizeCreate(actorID primitive.ObjectID, members []models.Membership) error {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		return faults.Forbidden("You are not a member of this project")
	}
	caps, err := roles.CapabilitiesOf(actor.Role)
	if err != nil {
		return err
	}
	if !caps.CreateTask {
		return faults.Forbidden("Your role does not allow creating tasks")
	}
	return nil
}

// UpdatePatch carries the optional fields of a task update. Progress changes
// submitted through the generic update path are authorized like any other
// field edit; the dedicated progress path (AuthorizeProgress) has its own
// rule.
type UpdatePatch struct {
	Name        *string
	Description *string
	Deadline    *string
	Progress    *models.Progress
}

// Empty reports whether the patch carries no fields.
func (p UpdatePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Deadline == nil && p.Progress == nil
}

// ValidatePatch checks that at least one field is present and that each
// supplied field is well-formed. Returns the parsed deadline when one was
// supplied.
func ValidatePatch(patch UpdatePatch, now time.Time) (*time.Time, error) {
	if patch.Empty() {
		return nil, faults.Validation("patch", "At least one field must be provided")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, faults.Validation("taskName", "Task name cannot be empty!")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return nil, faults.Validation("taskDescription", "Task description cannot be empty!")
	}
	if patch.Progress != nil && !models.ValidProgress(*patch.Progress) {
		return nil, faults.Validation("taskProgress", "Task progress must be 'To Do', 'In Progress' or 'Completed'")
	}
	if patch.Deadline != nil {
		deadline, err := ParseDeadline(*patch.Deadline, now)
		if err != nil {
			return nil, err
		}
		return &deadline, nil
	}
	return nil, nil
}

// AuthorizeUpdate checks the generic edit rule: administrators may update
// any task, developers only tasks they created, viewers never.
func AuthorizeUpdate(actorID primitive.ObjectID, members []models.Membership, task models.Task) error {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		return faults.Forbidden("You are not a member of this project")
	}
	caps, err := roles.CapabilitiesOf(actor.Role)
	if err != nil {
		return err
	}
	if caps.EditAnyTask {
		return nil
	}
	if caps.EditOwnTask && task.CreatorID == actorID {
		return nil
	}
	return faults.Forbidden("You are not authorized to update this task")
}

// ValidateProgress checks that p is a valid lifecycle state. Transitions
// between states are unrestricted, so the current state is not consulted.
func ValidateProgress(p models.Progress) error {
	if p == "" {
		return faults.Validation("progress", "Progress is required")
	}
	if !models.ValidProgress(p) {
		return faults.Validation("progress", "Progress must be 'To Do', 'In Progress' or 'Completed'")
	}
	return nil
}

// AuthorizeProgress checks the progress-change rule: administrators may
// update any task's progress; other roles need the progress capability and
// must have created the task or be its assignee.
func AuthorizeProgress(actorID primitive.ObjectID, members []models.Membership, task models.Task) error {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		return faults.Forbidden("You are not a member of this project")
	}
	if actor.Role == roles.Administrator {
		return nil
	}
	caps, err := roles.CapabilitiesOf(actor.Role)
	if err != nil {
		return err
	}
	if caps.UpdateProgressIfCreatorOrAssignee && (task.CreatorID == actorID || task.AssignedTo(actorID)) {
		return nil
	}
	return faults.Forbidden("Only the project owner or assigned member can update task progress")
}

// AuthorizeAssign checks that the actor is a project administrator.
func AuthorizeAssign(actorID primitive.ObjectID, members []models.Membership) error {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		return faults.Forbidden("You are not a member of this project")
	}
	if actor.Role != roles.Administrator {
		return faults.Forbidden("Only a project administrator can assign tasks")
	}
	return nil
}

// ResolveAssignee maps a membership id to its membership, failing when the
// member is not part of the project.
func ResolveAssignee(members []models.Membership, memberID primitive.ObjectID) (models.Membership, error) {
	m, ok := memberpolicy.Find(members, memberID)
	if !ok {
		return models.Membership{}, faults.NotFound("Member is not part of this project")
	}
	return m, nil
}

// AuthorizeDelete checks the delete rule: the task's creator or a project
// administrator.
func AuthorizeDelete(actorID primitive.ObjectID, members []models.Membership, task models.Task) error {
	actor, ok := memberpolicy.FindByUser(members, actorID)
	if !ok {
		return faults.Forbidden("You are not a member of this project")
	}
	caps, err := roles.CapabilitiesOf(actor.Role)
	if err != nil {
		return err
	}
	if caps.DeleteAnyTask {
		return nil
	}
	if caps.DeleteOwnTask && task.CreatorID == actorID {
		return nil
	}
	return faults.Forbidden("You are not authorized to delete this task")
}

// NewHistoryEntry builds the append-only history row recorded with every
// progress change.
func NewHistoryEntry(progress models.Progress, actorID primitive.ObjectID, now time.Time) models.ProgressEntry {
	return models.ProgressEntry{
		Progress:  progress,
		UpdatedBy: actorID,
		Timestamp: now,
	}
}
