// internal/app/policy/memberpolicy/memberpolicy.go

// Package memberpolicy validates membership mutations against the project
// integrity invariant: a project must retain at least one administrator
// membership at all times.
//
// The functions here are pure. They operate on a fully-resolved membership
// list supplied by the caller and never reach into a data store. Callers
// apply the mutation only after a successful validation, and must re-run
// the validation against the authoritative state inside their write
// serialization (see store/memberships).
package memberpolicy

import (
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Find returns the membership with the given id.
func Find(members []models.Membership, membershipID primitive.ObjectID) (models.Membership, bool) {
	for _, m := range members {
		if m.ID == membershipID {
			return m, true
		}
	}
	return models.Membership{}, false
}

// FindByUser returns the membership held by userID, if any. A user holds at
// most one membership per project.
func FindByUser(members []models.Membership, userID primitive.ObjectID) (models.Membership, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.Membership{}, false
}

// AdminCount returns the number of administrator memberships.
func AdminCount(members []models.Membership) int {
	n := 0
	for _, m := range members {
		if m.Role == roles.Administrator {
			n++
		}
	}
	return n
}

// ValidateRoleChange checks whether the target membership may move to
// newRole. Setting a membership to its current role is always a valid
// no-op. Demoting the only administrator fails with a last-administrator
// fault.
func ValidateRoleChange(members []models.Membership, targetMembershipID primitive.ObjectID, newRole roles.Role) error {
	if !roles.Valid(newRole) {
		return faults.InvalidRole(string(newRole))
	}
	target, ok := Find(members, targetMembershipID)
	if !ok {
		return faults.NotFound("membership not found in project")
	}
	if target.Role == newRole {
		return nil
	}
	if target.Role == roles.Administrator && AdminCount(members) <= 1 {
		return faults.LastAdministrator("cannot demote the project's only administrator")
	}
	return nil
}

// ValidateRemoval checks whether the target membership may be removed.
func ValidateRemoval(members []models.Membership, targetMembershipID primitive.ObjectID) error {
	target, ok := Find(members, targetMembershipID)
	if !ok {
		return faults.NotFound("membership not found in project")
	}
	if target.Role == roles.Administrator && AdminCount(members) <= 1 {
		return faults.LastAdministrator("cannot remove the project's only administrator")
	}
	return nil
}

// ValidateSelfLeave checks whether the actor may leave the project. The
// rule is the same as removal: the last administrator may not leave.
func ValidateSelfLeave(members []models.Membership, actorMembershipID primitive.ObjectID) error {
	actor, ok := Find(members, actorMembershipID)
	if !ok {
		return faults.NotFound("membership not found in project")
	}
	if actor.Role == roles.Administrator && AdminCount(members) <= 1 {
		return faults.LastAdministrator("the project's only administrator cannot leave")
	}
	return nil
}
