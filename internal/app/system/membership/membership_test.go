package membership_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelieropen/obratrack/internal/app/system/membership"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

func user(role string) models.User {
	return models.User{ID: primitive.NewObjectID(), Role: role, Active: true}
}

func userEntry(id primitive.ObjectID) models.Assignment {
	return models.Assignment{Kind: models.AssignmentKindUser, UserID: &id}
}

func roleEntry(role string) models.Assignment {
	return models.Assignment{Kind: models.AssignmentKindRole, RoleID: role}
}

func TestResolve_UserEntries(t *testing.T) {
	a := user("obra")
	b := user("admin")
	roster := []models.User{a, b}

	res := membership.Resolve([]models.Assignment{userEntry(a.ID), userEntry(b.ID)}, roster)

	if len(res.Members) != 2 {
		t.Fatalf("Members: got %d, want 2", len(res.Members))
	}
	if !res.HasMember(a.ID) || !res.HasMember(b.ID) {
		t.Error("expected both assigned users in Members")
	}
	if len(res.RolesAllowed) != 0 {
		t.Errorf("RolesAllowed: got %v, want empty", res.RolesAllowed)
	}
}

func TestResolve_RoleEntryExpandsRoster(t *testing.T) {
	obra1 := user("obra")
	obra2 := user("obra")
	admin := user("admin")
	roster := []models.User{obra1, obra2, admin}

	res := membership.Resolve([]models.Assignment{roleEntry("obra")}, roster)

	if len(res.Members) != 2 {
		t.Fatalf("Members: got %d, want 2", len(res.Members))
	}
	if !res.HasMember(obra1.ID) || !res.HasMember(obra2.ID) {
		t.Error("expected every roster user with the role in Members")
	}
	if res.HasMember(admin.ID) {
		t.Error("admin must not be expanded from an obra role entry")
	}
	if len(res.RolesAllowed) != 1 || res.RolesAllowed[0] != "obra" {
		t.Errorf("RolesAllowed: got %v, want [obra]", res.RolesAllowed)
	}
}

// Role-kind assignments must appear 1:1 in RolesAllowed even when nobody in
// the roster currently holds the role; visibility for such a project comes
// from the roles_allowed index, not from Members.
func TestResolve_RoleEntryWithEmptyRoster(t *testing.T) {
	res := membership.Resolve([]models.Assignment{roleEntry("obra")}, nil)

	if len(res.Members) != 0 {
		t.Errorf("Members: got %v, want empty", res.Members)
	}
	if len(res.RolesAllowed) != 1 || res.RolesAllowed[0] != "obra" {
		t.Errorf("RolesAllowed: got %v, want [obra]", res.RolesAllowed)
	}
	if !res.AllowsRole("obra") {
		t.Error("AllowsRole(obra) = false, want true")
	}
	if res.AllowsRole("admin") {
		t.Error("AllowsRole(admin) = true, want false")
	}
}

func TestResolve_MixedEntries(t *testing.T) {
	direct := user("interiorismo")
	obra := user("obra")
	roster := []models.User{direct, obra}

	res := membership.Resolve([]models.Assignment{
		roleEntry("obra"),
		userEntry(direct.ID),
	}, roster)

	if !res.HasMember(direct.ID) {
		t.Error("user-kind target missing from Members")
	}
	if !res.HasMember(obra.ID) {
		t.Error("expanded role holder missing from Members")
	}
	if len(res.RolesAllowed) != 1 || res.RolesAllowed[0] != "obra" {
		t.Errorf("RolesAllowed: got %v, want [obra]", res.RolesAllowed)
	}
}

func TestResolve_DuplicatesAreIdempotent(t *testing.T) {
	a := user("obra")
	roster := []models.User{a}

	res := membership.Resolve([]models.Assignment{
		userEntry(a.ID),
		userEntry(a.ID),
		roleEntry("obra"),
		roleEntry("obra"),
	}, roster)

	if len(res.Members) != 1 {
		t.Errorf("Members: got %d, want 1 (dedup)", len(res.Members))
	}
	if len(res.RolesAllowed) != 1 {
		t.Errorf("RolesAllowed: got %d, want 1 (dedup)", len(res.RolesAllowed))
	}
}

func TestResolve_OrderIndependent(t *testing.T) {
	a := user("obra")
	b := user("arquitectura")
	roster := []models.User{a, b}

	forward := []models.Assignment{userEntry(a.ID), userEntry(b.ID), roleEntry("arquitectura")}
	reverse := []models.Assignment{roleEntry("arquitectura"), userEntry(b.ID), userEntry(a.ID)}

	r1 := membership.Resolve(forward, roster)
	r2 := membership.Resolve(reverse, roster)

	if len(r1.Members) != len(r2.Members) {
		t.Fatalf("member counts differ: %d vs %d", len(r1.Members), len(r2.Members))
	}
	for i := range r1.Members {
		if r1.Members[i] != r2.Members[i] {
			t.Fatalf("member order differs at %d: %s vs %s", i, r1.Members[i].Hex(), r2.Members[i].Hex())
		}
	}
	if len(r1.RolesAllowed) != len(r2.RolesAllowed) {
		t.Fatalf("role counts differ")
	}
	for i := range r1.RolesAllowed {
		if r1.RolesAllowed[i] != r2.RolesAllowed[i] {
			t.Fatalf("role order differs at %d", i)
		}
	}
}

func TestResolve_EmptyAssignments(t *testing.T) {
	roster := []models.User{user("obra"), user("admin")}

	res := membership.Resolve(nil, roster)

	if len(res.Members) != 0 || len(res.RolesAllowed) != 0 {
		t.Errorf("got members=%v roles=%v, want both empty", res.Members, res.RolesAllowed)
	}
}

func TestResolve_DanglingReferencesIgnored(t *testing.T) {
	gone := primitive.NewObjectID() // not in roster; still listed as a member
	res := membership.Resolve([]models.Assignment{
		userEntry(gone),
		roleEntry("demolition"),               // role nobody holds
		{Kind: models.AssignmentKindUser},     // nil user id
		{Kind: models.AssignmentKindRole},     // empty role id
		{Kind: "unknown", RoleID: "whatever"}, // unrecognized kind
	}, nil)

	// A user-kind entry keeps its target even if the user record is gone;
	// the store query simply never matches it.
	if !res.HasMember(gone) {
		t.Error("user-kind target should remain in Members")
	}
	if len(res.Members) != 1 {
		t.Errorf("Members: got %d, want 1", len(res.Members))
	}
	if len(res.RolesAllowed) != 1 || res.RolesAllowed[0] != "demolition" {
		t.Errorf("RolesAllowed: got %v, want [demolition]", res.RolesAllowed)
	}
}

func TestValidateAssignments(t *testing.T) {
	valid := primitive.NewObjectID()

	cases := []struct {
		name    string
		in      []models.Assignment
		wantErr bool
	}{
		{"empty list", nil, false},
		{"valid mix", []models.Assignment{userEntry(valid), roleEntry("obra")}, false},
		{"user entry without id", []models.Assignment{{Kind: models.AssignmentKindUser}}, true},
		{"role entry without id", []models.Assignment{{Kind: models.AssignmentKindRole}}, true},
		{"unknown role", []models.Assignment{roleEntry("demolition")}, true},
		{"unknown kind", []models.Assignment{{Kind: "group", RoleID: "obra"}}, true},
		{"duplicate user", []models.Assignment{userEntry(valid), userEntry(valid)}, true},
		{"duplicate role", []models.Assignment{roleEntry("obra"), roleEntry("obra")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := membership.ValidateAssignments(tc.in)
			if tc.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
