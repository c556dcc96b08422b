// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/membership"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Store struct {
	c     *mongo.Collection
	users *userstore.Store
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("projects"),
		users: userstore.New(db),
	}
}

var (
	// ErrEmptyTitle is returned when creating or updating a project without a title.
	ErrEmptyTitle = errors.New("project title must not be empty")
	// ErrTaskNotFound is returned by keyed task updates when no embedded task has the ID.
	ErrTaskNotFound = errors.New("no task with that id in the project")
)

// Create inserts a new project. Derived members/roles_allowed are computed
// here from the assignment list against a fresh roster snapshot; if the
// snapshot read fails, nothing is written.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.Title == "" {
		return models.Project{}, ErrEmptyTitle
	}

	roster, err := s.users.Snapshot(ctx)
	if err != nil {
		return models.Project{}, err
	}
	res := membership.Resolve(p.Assignments, roster)

	p.ID = primitive.NewObjectID()
	p.Members = res.Members
	p.RolesAllowed = res.RolesAllowed
	ensureEmbeddedIDs(&p)

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Get loads a project by ID. Returns mongo.ErrNoDocuments if absent.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update holds the editable top-level fields of a project. Each slice
// replaces its stored counterpart wholesale; the later write wins, per-task
// merging is intentionally not attempted. CreatedBy is immutable and never
// part of an update.
type Update struct {
	Title       string
	Description string
	Assignments []models.Assignment
	Sections    []models.Section
	Tasks       []models.Task
}

// Apply overwrites the project's editable fields and recomputes the derived
// visibility fields from the new assignment list. The roster snapshot is
// taken first; if it fails, the project document is untouched.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Project, error) {
	if upd.Title == "" {
		return nil, ErrEmptyTitle
	}

	roster, err := s.users.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res := membership.Resolve(upd.Assignments, roster)

	p := models.Project{
		Title:        upd.Title,
		Description:  upd.Description,
		Assignments:  upd.Assignments,
		Sections:     upd.Sections,
		Tasks:        upd.Tasks,
		Members:      res.Members,
		RolesAllowed: res.RolesAllowed,
	}
	ensureEmbeddedIDs(&p)

	set := bson.M{
		"title":         p.Title,
		"description":   p.Description,
		"assignments":   emptyAssignments(p.Assignments),
		"sections":      emptySections(p.Sections),
		"tasks":         emptyTasks(p.Tasks),
		"members":       p.Members,
		"roles_allowed": p.RolesAllowed,
		"updated_at":    time.Now().UTC(),
	}

	var updated models.Project
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the project document permanently. Embedded sections and
// tasks vanish with it; there is no soft delete.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TaskFlag selects which boolean a keyed task update flips.
type TaskFlag string

const (
	TaskCompleted TaskFlag = "completed"
	TaskFavorite  TaskFlag = "favorite"
	TaskNA        TaskFlag = "na"
)

// SetTaskFlag sets one flag on one embedded task, keyed by the task's
// embedded UUID. Unlike a full Apply this touches only that task, which
// narrows the concurrent-edit window for checklist toggles.
func (s *Store) SetTaskFlag(ctx context.Context, projectID primitive.ObjectID, taskID string, flag TaskFlag, value bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": projectID, "tasks.id": taskID},
		bson.M{"$set": bson.M{
			"tasks.$." + string(flag): value,
			"updated_at":              time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// AssignTask records the assignee on one embedded task. Pass NilObjectID to
// clear the assignment.
func (s *Store) AssignTask(ctx context.Context, projectID primitive.ObjectID, taskID string, assigneeID primitive.ObjectID) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if assigneeID.IsZero() {
		unset["tasks.$.assignee_id"] = ""
	} else {
		set["tasks.$.assignee_id"] = assigneeID
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": projectID, "tasks.id": taskID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListVisible returns the one-shot union of the three visibility
// predicates for a viewer: ownership, expanded membership, allowed role.
// The live equivalent is the feed trio in watch.go.
func (s *Store) ListVisible(ctx context.Context, viewerID primitive.ObjectID, role string) ([]models.Project, error) {
	filter := bson.M{"$or": []bson.M{
		{"created_by": viewerID},
		{"members": viewerID},
		{"roles_allowed": role},
	}}
	return s.find(ctx, filter)
}

// ListAll returns every project, for viewers holding ViewAllProjects.
func (s *Store) ListAll(ctx context.Context) ([]models.Project, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ensureEmbeddedIDs assigns UUIDs to sections and tasks created without
// one, so later keyed updates and client rendering have stable keys.
func ensureEmbeddedIDs(p *models.Project) {
	for i := range p.Sections {
		if p.Sections[i].ID == "" {
			p.Sections[i].ID = uuid.NewString()
		}
	}
	for i := range p.Tasks {
		if p.Tasks[i].ID == "" {
			p.Tasks[i].ID = uuid.NewString()
		}
	}
}

// The bson encoder writes nil slices as null; visibility queries with
// array-contains predicates expect arrays, so store empties instead.

func emptyAssignments(a []models.Assignment) []models.Assignment {
	if a == nil {
		return []models.Assignment{}
	}
	return a
}

func emptySections(s []models.Section) []models.Section {
	if s == nil {
		return []models.Section{}
	}
	return s
}

func emptyTasks(t []models.Task) []models.Task {
	if t == nil {
		return []models.Task{}
	}
	return t
}
