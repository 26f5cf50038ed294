// internal/domain/roles/roles.go

// Package roles defines the closed set of project roles and the capability
// table that drives every authorization decision. Roles are totally ordered
// for display (administrator > developer > viewer) but authorization is
// capability-based, not ordinal.
package roles

import "github.com/dalemusser/taskhub/internal/domain/faults"

// Role is one of the three fixed project roles.
type Role string

const (
	Administrator Role = "administrator"
	Developer     Role = "developer"
	Viewer        Role = "viewer"
)

// Default is the role granted when joining a project via invite link.
const Default = Developer

// Capabilities is the permission set a role grants inside its project.
type Capabilities struct {
	ManageSettings bool
	ManageMembers  bool
	AssignRoles    bool

	CreateTask    bool
	EditAnyTask   bool
	EditOwnTask   bool
	DeleteAnyTask bool
	DeleteOwnTask bool

	// UpdateProgressIfCreatorOrAssignee lets the role move tasks it created
	// or is assigned to between lifecycle states.
	UpdateProgressIfCreatorOrAssignee bool

	ViewOnly bool
}

var capabilityTable = map[Role]Capabilities{
	Administrator: {
		ManageSettings: true,
		ManageMembers:  true,
		AssignRoles:    true,
		CreateTask:     true,
		EditAnyTask:    true,
		EditOwnTask:    true,
		DeleteAnyTask:  true,
		DeleteOwnTask:  true,

		UpdateProgressIfCreatorOrAssignee: true,
	},
	Developer: {
		CreateTask:    true,
		EditOwnTask:   true,
		DeleteOwnTask: true,

		UpdateProgressIfCreatorOrAssignee: true,
	},
	Viewer: {
		ViewOnly: true,
	},
}

// displayOrder ranks roles for UI sorting only.
var displayOrder = map[Role]int{
	Administrator: 3,
	Developer:     2,
	Viewer:        1,
}

// Valid reports whether r is a recognized role.
func Valid(r Role) bool {
	_, ok := capabilityTable[r]
	return ok
}

// All returns the roles in display order, highest first.
func All() []Role {
	return []Role{Administrator, Developer, Viewer}
}

// CapabilitiesOf returns the capability set for r. An unrecognized role is
// a configuration error, never silently mapped to viewer.
func CapabilitiesOf(r Role) (Capabilities, error) {
	caps, ok := capabilityTable[r]
	if !ok {
		return Capabilities{}, faults.InvalidRole(string(r))
	}
	return caps, nil
}

// Parse validates a raw role string from the host.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !Valid(r) {
		return "", faults.InvalidRole(s)
	}
	return r, nil
}

// Rank returns the display ordering of r; unknown roles rank lowest.
func Rank(r Role) int {
	return displayOrder[r]
}
