package roles

import (
	"errors"
	"testing"

	"github.com/dalemusser/taskhub/internal/domain/faults"
)

func TestValid(t *testing.T) {
	for _, r := range All() {
		if !Valid(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	for _, r := range []Role{"", "admin", "owner", "ADMINISTRATOR"} {
		if Valid(r) {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestCapabilityTable(t *testing.T) {
	admin, err := CapabilitiesOf(Administrator)
	if err != nil {
		t.Fatalf("CapabilitiesOf(Administrator): %v", err)
	}
	if !admin.ManageSettings || !admin.ManageMembers || !admin.AssignRoles {
		t.Error("administrator must hold all management capabilities")
	}
	if !admin.EditAnyTask || !admin.DeleteAnyTask {
		t.Error("administrator must edit and delete any task")
	}

	dev, err := CapabilitiesOf(Developer)
	if err != nil {
		t.Fatalf("CapabilitiesOf(Developer): %v", err)
	}
	if dev.ManageSettings || dev.ManageMembers || dev.AssignRoles {
		t.Error("developer must not hold management capabilities")
	}
	if !dev.CreateTask || !dev.EditOwnTask || !dev.DeleteOwnTask {
		t.Error("developer must create and manage own tasks")
	}
	if dev.EditAnyTask || dev.DeleteAnyTask {
		t.Error("developer must not touch other members' tasks")
	}

	viewer, err := CapabilitiesOf(Viewer)
	if err != nil {
		t.Fatalf("CapabilitiesOf(Viewer): %v", err)
	}
	if viewer != (Capabilities{ViewOnly: true}) {
		t.Errorf("viewer must be view-only, got %+v", viewer)
	}
}

func TestCapabilitiesOfUnknownRole(t *testing.T) {
	_, err := CapabilitiesOf("owner")
	if !errors.Is(err, faults.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestParse(t *testing.T) {
	r, err := Parse("developer")
	if err != nil || r != Developer {
		t.Errorf("Parse(developer) = %q, %v", r, err)
	}
	if _, err := Parse("superuser"); !errors.Is(err, faults.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole for unknown role, got %v", err)
	}
}

func TestDefaultIsDeveloper(t *testing.T) {
	if Default != Developer {
		t.Errorf("invite-link joins must grant developer, got %q", Default)
	}
}

func TestRank(t *testing.T) {
	if !(Rank(Administrator) > Rank(Developer) && Rank(Developer) > Rank(Viewer)) {
		t.Error("display order must be administrator > developer > viewer")
	}
	if Rank("bogus") != 0 {
		t.Errorf("unknown roles must rank lowest, got %d", Rank("bogus"))
	}
}
