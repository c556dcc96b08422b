// internal/app/system/authz/capabilities.go
package authz

// Capability names a single permitted action. Access checks consult the
// capability table rather than comparing role strings inline, so adding a
// role or changing what it may do is a one-table edit.
type Capability string

const (
	// ManageUsers: create, edit, deactivate, and delete user accounts.
	ManageUsers Capability = "manage_users"
	// ManageProjects: create, edit, delete projects and edit assignments.
	ManageProjects Capability = "manage_projects"
	// ViewAllProjects: see every project regardless of assignments.
	ViewAllProjects Capability = "view_all_projects"
	// AssignTasks: hand a checklist task to a user (triggers notification).
	AssignTasks Capability = "assign_tasks"
	// EditChecklist: toggle task completion/favorite/na on visible projects.
	EditChecklist Capability = "edit_checklist"
	// WriteNotes: create and edit notes on visible projects.
	WriteNotes Capability = "write_notes"
)

var capabilityTable = map[string]map[Capability]struct{}{
	RoleDirector: caps(ManageUsers, ManageProjects, ViewAllProjects, AssignTasks, EditChecklist, WriteNotes),
	RoleAdmin:    caps(ManageUsers, ManageProjects, ViewAllProjects, AssignTasks, EditChecklist, WriteNotes),
	RoleAuxAdmin: caps(ManageProjects, AssignTasks, EditChecklist, WriteNotes),

	RoleObra:         caps(EditChecklist, WriteNotes),
	RoleArquitectura: caps(EditChecklist, WriteNotes),
	RoleInteriorismo: caps(EditChecklist, WriteNotes),
	RolePaisajismo:   caps(EditChecklist, WriteNotes),
}

func caps(cs ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(cs))
	for _, c := range cs {
		set[c] = struct{}{}
	}
	return set
}

// Can reports whether the given role holds the capability. Unknown roles
// hold nothing.
func Can(role string, c Capability) bool {
	set, ok := capabilityTable[role]
	if !ok {
		return false
	}
	_, has := set[c]
	return has
}
