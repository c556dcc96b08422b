// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelieropen/obratrack/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	first, last := splitName(fullName)
	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     strings.ToLower(email),
		FirstName: first,
		LastName:  last,
		FullName:  fullName,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateInactiveUser creates a deactivated test user.
func (f *Fixtures) CreateInactiveUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, fullName, email, role)
	if _, err := f.db.Collection("users").UpdateOne(ctx,
		primitiveIDFilter(user.ID), updateSet("active", false)); err != nil {
		f.t.Fatalf("failed to deactivate test user: %v", err)
	}
	user.Active = false
	return user
}

// CreateProject inserts a project owned by createdBy with the given
// assignments, members and roles already resolved by the caller.
func (f *Fixtures) CreateProject(ctx context.Context, title string, createdBy primitive.ObjectID, opts ...func(*models.Project)) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:           primitive.NewObjectID(),
		Title:        title,
		CreatedBy:    createdBy,
		Assignments:  []models.Assignment{},
		Members:      []primitive.ObjectID{},
		RolesAllowed: []string{},
		Sections:     []models.Section{},
		Tasks:        []models.Task{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// WithMembers sets the resolved member list on a fixture project.
func WithMembers(ids ...primitive.ObjectID) func(*models.Project) {
	return func(p *models.Project) { p.Members = ids }
}

// WithRolesAllowed sets the resolved role list on a fixture project.
func WithRolesAllowed(roles ...string) func(*models.Project) {
	return func(p *models.Project) { p.RolesAllowed = roles }
}

// WithTasks sets the embedded task list on a fixture project.
func WithTasks(tasks ...models.Task) func(*models.Project) {
	return func(p *models.Project) { p.Tasks = tasks }
}

// WithSections sets the embedded section list on a fixture project.
func WithSections(sections ...models.Section) func(*models.Project) {
	return func(p *models.Project) { p.Sections = sections }
}

// CreateNote inserts a note on the given project.
func (f *Fixtures) CreateNote(ctx context.Context, projectID, authorID primitive.ObjectID, body string) models.Note {
	f.t.Helper()

	now := time.Now().UTC()
	note := models.Note{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("notes").InsertOne(ctx, note); err != nil {
		f.t.Fatalf("failed to create test note: %v", err)
	}
	return note
}

func splitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func primitiveIDFilter(id primitive.ObjectID) map[string]any {
	return map[string]any{"_id": id}
}

func updateSet(field string, value any) map[string]any {
	return map[string]any{"$set": map[string]any{field: value}}
}
