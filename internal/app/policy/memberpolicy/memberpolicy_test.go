package memberpolicy

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
)

func member(role roles.Role) models.Membership {
	return models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		Role:      role,
	}
}

func TestAdminCount(t *testing.T) {
	members := []models.Membership{
		member(roles.Administrator),
		member(roles.Developer),
		member(roles.Administrator),
		member(roles.Viewer),
	}
	if n := AdminCount(members); n != 2 {
		t.Errorf("AdminCount = %d, want 2", n)
	}
	if n := AdminCount(nil); n != 0 {
		t.Errorf("AdminCount(nil) = %d, want 0", n)
	}
}

func TestValidateRoleChangeDemoteSoleAdmin(t *testing.T) {
	admin := member(roles.Administrator)
	dev := member(roles.Developer)
	members := []models.Membership{admin, dev}

	err := ValidateRoleChange(members, admin.ID, roles.Developer)
	if !errors.Is(err, faults.ErrLastAdministrator) {
		t.Errorf("demoting the only administrator: got %v, want ErrLastAdministrator", err)
	}
}

func TestValidateRoleChangeDemoteWithSecondAdmin(t *testing.T) {
	a1 := member(roles.Administrator)
	a2 := member(roles.Administrator)
	members := []models.Membership{a1, a2}

	if err := ValidateRoleChange(members, a1.ID, roles.Viewer); err != nil {
		t.Errorf("demoting one of two administrators: got %v, want nil", err)
	}
}

func TestValidateRoleChangeNoOpOnSoleAdmin(t *testing.T) {
	admin := member(roles.Administrator)
	members := []models.Membership{admin, member(roles.Developer)}

	// Re-asserting the current role must not trip the invariant.
	if err := ValidateRoleChange(members, admin.ID, roles.Administrator); err != nil {
		t.Errorf("no-op role change: got %v, want nil", err)
	}
}

func TestValidateRoleChangePromote(t *testing.T) {
	admin := member(roles.Administrator)
	dev := member(roles.Developer)
	members := []models.Membership{admin, dev}

	if err := ValidateRoleChange(members, dev.ID, roles.Administrator); err != nil {
		t.Errorf("promoting a developer: got %v, want nil", err)
	}
}

func TestValidateRoleChangeUnknownRole(t *testing.T) {
	admin := member(roles.Administrator)
	err := ValidateRoleChange([]models.Membership{admin}, admin.ID, "owner")
	if !errors.Is(err, faults.ErrInvalidRole) {
		t.Errorf("unknown role: got %v, want ErrInvalidRole", err)
	}
}

func TestValidateRoleChangeMissingTarget(t *testing.T) {
	members := []models.Membership{member(roles.Administrator)}
	err := ValidateRoleChange(members, primitive.NewObjectID(), roles.Viewer)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("missing membership: got %v, want ErrNotFound", err)
	}
}

func TestValidateRemoval(t *testing.T) {
	admin := member(roles.Administrator)
	dev := member(roles.Developer)
	members := []models.Membership{admin, dev}

	if err := ValidateRemoval(members, dev.ID); err != nil {
		t.Errorf("removing a developer: got %v, want nil", err)
	}
	if err := ValidateRemoval(members, admin.ID); !errors.Is(err, faults.ErrLastAdministrator) {
		t.Errorf("removing the only administrator: got %v, want ErrLastAdministrator", err)
	}

	second := member(roles.Administrator)
	if err := ValidateRemoval(append(members, second), admin.ID); err != nil {
		t.Errorf("removing one of two administrators: got %v, want nil", err)
	}
}

func TestValidateSelfLeave(t *testing.T) {
	admin := member(roles.Administrator)
	dev := member(roles.Developer)
	members := []models.Membership{admin, dev}

	if err := ValidateSelfLeave(members, dev.ID); err != nil {
		t.Errorf("developer leaving: got %v, want nil", err)
	}
	if err := ValidateSelfLeave(members, admin.ID); !errors.Is(err, faults.ErrLastAdministrator) {
		t.Errorf("only administrator leaving: got %v, want ErrLastAdministrator", err)
	}
}

func TestFindByUser(t *testing.T) {
	m := member(roles.Developer)
	got, ok := FindByUser([]models.Membership{m}, m.UserID)
	if !ok || got.ID != m.ID {
		t.Errorf("FindByUser failed to locate membership")
	}
	if _, ok := FindByUser([]models.Membership{m}, primitive.NewObjectID()); ok {
		t.Error("FindByUser matched a non-member")
	}
}
