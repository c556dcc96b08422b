// Package membership expands a project's tagged assignment list into the
// derived visibility fields stored on the project document.
//
// An assignment either names one user directly or names a role; role-kind
// entries are expanded against a snapshot of the current user roster taken
// at save time. Expansion is re-run in full on every create or update of a
// project's assignments; nothing is incrementalized. Both inputs are small
// (tens to low hundreds), so the O(assignments x users) scan is fine.
package membership

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

// ValidateAssignments rejects malformed assignment lists before anything
// is written: unknown kinds, role entries naming no (or an unknown) role,
// user entries naming no user, and exact duplicates. Resolve tolerates
// these by skipping them; validation exists so the author of the list
// hears about the mistake instead of silently losing an entry.
func ValidateAssignments(assignments []models.Assignment) error {
	seen := make(map[string]struct{}, len(assignments))
	for i, a := range assignments {
		var key string
		switch a.Kind {
		case models.AssignmentKindUser:
			if a.UserID == nil || a.UserID.IsZero() {
				return fmt.Errorf("assignment %d: user entry has no user id", i)
			}
			key = "user:" + a.UserID.Hex()
		case models.AssignmentKindRole:
			if a.RoleID == "" {
				return fmt.Errorf("assignment %d: role entry has no role id", i)
			}
			if !authz.IsValidRole(a.RoleID) {
				return fmt.Errorf("assignment %d: unknown role %q", i, a.RoleID)
			}
			key = "role:" + a.RoleID
		default:
			return fmt.Errorf("assignment %d: unknown kind %q", i, a.Kind)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("assignment %d: duplicate entry", i)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Resolution is the output of Resolve: the flattened member set and the
// role index for a project, in deterministic order.
type Resolution struct {
	Members      []primitive.ObjectID
	RolesAllowed []string
}

// Resolve computes the derived visibility fields for one assignment list.
//
// Rules:
//   - user-kind entries contribute their user ID to Members.
//   - role-kind entries contribute their role ID to RolesAllowed, plus every
//     roster user currently holding that role to Members.
//   - duplicate entries are idempotent; sets deduplicate naturally.
//   - entries referencing a user or role absent from the roster contribute
//     nothing (not an error).
//   - an empty assignment list yields empty sets; the project is then
//     visible only to its creator via the ownership query.
//
// Output slices are sorted (members by hex ID, roles lexically) so that
// resolving the same inputs twice yields identical documents regardless of
// entry order.
func Resolve(assignments []models.Assignment, roster []models.User) Resolution {
	memberSet := make(map[primitive.ObjectID]struct{})
	roleSet := make(map[string]struct{})

	for _, a := range assignments {
		switch a.Kind {
		case models.AssignmentKindUser:
			if a.UserID != nil && !a.UserID.IsZero() {
				memberSet[*a.UserID] = struct{}{}
			}
		case models.AssignmentKindRole:
			if a.RoleID == "" {
				continue
			}
			roleSet[a.RoleID] = struct{}{}
			for _, u := range roster {
				if u.Role == a.RoleID {
					memberSet[u.ID] = struct{}{}
				}
			}
		}
	}

	res := Resolution{
		Members:      make([]primitive.ObjectID, 0, len(memberSet)),
		RolesAllowed: make([]string, 0, len(roleSet)),
	}
	for id := range memberSet {
		res.Members = append(res.Members, id)
	}
	for role := range roleSet {
		res.RolesAllowed = append(res.RolesAllowed, role)
	}
	sort.Slice(res.Members, func(i, j int) bool {
		return res.Members[i].Hex() < res.Members[j].Hex()
	})
	sort.Strings(res.RolesAllowed)
	return res
}

// HasMember reports whether id is in the resolution's member set.
func (r Resolution) HasMember(id primitive.ObjectID) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}

// AllowsRole reports whether role is in the resolution's role index.
func (r Resolution) AllowsRole(role string) bool {
	for _, got := range r.RolesAllowed {
		if got == role {
			return true
		}
	}
	return false
}
