// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment kinds. An assignment grants project visibility either to one
// named user or to everyone holding a role.
const (
	AssignmentKindRole = "role"
	AssignmentKindUser = "user"
)

// Assignment is one tagged entry in a project's assignment list.
// Exactly one of RoleID / UserID is meaningful, selected by Kind.
type Assignment struct {
	Kind   string              `bson:"kind" json:"kind"`
	RoleID string              `bson:"role_id,omitempty" json:"role_id,omitempty"`
	UserID *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

// Section is a named group of checklist tasks inside a project.
// Sections are embedded; their IDs are UUID strings stable across edits.
type Section struct {
	ID    string `bson:"id" json:"id"`
	Title string `bson:"title" json:"title"`
	Order int    `bson:"order" json:"order"`
}

// Task is one checklist item. NA ("not applicable") excludes the task from
// progress math. AssigneeID is set when the task has been handed to a user.
type Task struct {
	ID         string              `bson:"id" json:"id"`
	SectionID  string              `bson:"section_id" json:"section_id"`
	Title      string              `bson:"title" json:"title"`
	Completed  bool                `bson:"completed" json:"completed"`
	Favorite   bool                `bson:"favorite" json:"favorite"`
	NA         bool                `bson:"na" json:"na"`
	Order      int                 `bson:"order" json:"order"`
	AssigneeID *primitive.ObjectID `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
}

// Project is a checklist project. Assignments are the single source of truth
// for visibility; Members and RolesAllowed are derived from them at save time
// by the membership resolver and act as query indexes:
//
//   - Members: every user-kind assignment target plus every user holding a
//     role-kind assignment's role at the time assignments were last written.
//   - RolesAllowed: exactly the role IDs appearing in role-kind assignments.
//
// Tasks and sections are replaced wholesale on edit; the later write wins.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	Assignments  []Assignment         `bson:"assignments" json:"assignments"`
	Members      []primitive.ObjectID `bson:"members" json:"members"`
	RolesAllowed []string             `bson:"roles_allowed" json:"roles_allowed"`

	Sections []Section `bson:"sections" json:"sections"`
	Tasks    []Task    `bson:"tasks" json:"tasks"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether the viewer may see this project: they created
// it, they are in the expanded member set, or their role is allowed. This
// is the same predicate the three live visibility queries evaluate.
func (p Project) VisibleTo(viewerID primitive.ObjectID, role string) bool {
	if p.CreatedBy == viewerID {
		return true
	}
	for _, m := range p.Members {
		if m == viewerID {
			return true
		}
	}
	for _, r := range p.RolesAllowed {
		if r == role {
			return true
		}
	}
	return false
}
