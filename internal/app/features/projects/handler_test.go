// internal/app/features/projects/handler_test.go
package projects

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	notestore "github.com/atelieropen/obratrack/internal/app/store/notes"
	projectstore "github.com/atelieropen/obratrack/internal/app/store/projects"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/notifier"
	"github.com/atelieropen/obratrack/internal/domain/models"
	"github.com/atelieropen/obratrack/internal/testutil"
)

type env struct {
	db       *mongo.Database
	fixtures *testutil.Fixtures
	router   http.Handler
	projects *projectstore.Store
	notes    *notestore.Store
	notified chan notifier.Payload
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)

	notified := make(chan notifier.Payload, 4)
	notifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p notifier.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		notified <- p
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(notifySrv.Close)

	projects := projectstore.New(db)
	notes := notestore.New(db)
	users := userstore.New(db)
	h := NewHandler(projects, notes, users, notifier.New(notifySrv.URL, zap.NewNop()), zap.NewNop())

	return &env{
		db:       db,
		fixtures: testutil.NewFixtures(t, db),
		router:   Routes(h),
		projects: projects,
		notes:    notes,
		notified: notified,
	}
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec.ResponseRecorder, req)
	return rec
}

func asUser(u models.User) testutil.TestUser {
	return testutil.TestUser{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName(),
		Email: u.Email,
		Role:  u.Role,
	}
}

func TestListScopedByVisibility(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")
	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")

	e.fixtures.CreateProject(ctx, "Mine", obra.ID)
	e.fixtures.CreateProject(ctx, "ByRole", admin.ID, testutil.WithRolesAllowed("obra"))
	e.fixtures.CreateProject(ctx, "Hidden", admin.ID)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", asUser(obra)))
	rec.AssertStatus(t, http.StatusOK)

	var got []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("obra viewer: got %d projects, want 2", len(got))
	}

	// ViewAllProjects sees everything.
	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", asUser(admin)))
	rec.AssertStatus(t, http.StatusOK)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("admin viewer: got %d projects, want 3", len(got))
	}
}

func TestListRequiresAuth(t *testing.T) {
	e := setup(t)

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestCreateRequiresCapability(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", `{"title":"Nope"}`, asUser(obra)))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestCreateComputesProgressAndIDs(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")

	body := `{
		"title": "Casa Roble",
		"tasks": [
			{"title": "Levantamiento", "completed": true},
			{"title": "Planos"},
			{"title": "Permisos", "na": true}
		]
	}`
	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", body, asUser(admin)))
	rec.AssertStatus(t, http.StatusCreated)

	var got struct {
		Progress int `json:"progress"`
		Tasks    []struct {
			ID string `json:"id"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// One of two effective tasks done; the NA task is out of the math.
	if got.Progress != 50 {
		t.Errorf("progress: got %d, want 50", got.Progress)
	}
	for _, task := range got.Tasks {
		if task.ID == "" {
			t.Error("expected generated task IDs")
		}
	}
}

func TestCreateRejectsBadAssignments(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")

	body := `{"title":"Casa Roble","assignments":[{"kind":"role","role_id":"demolition"}]}`
	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", body, asUser(admin)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestGetHiddenProjectIs404(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")
	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")
	hidden := e.fixtures.CreateProject(ctx, "Hidden", admin.ID)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+hidden.ID.Hex(), asUser(obra)))
	rec.AssertStatus(t, http.StatusNotFound)

	// Visible to its owner.
	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/"+hidden.ID.Hex(), asUser(admin)))
	rec.AssertStatus(t, http.StatusOK)
}

func TestSetTaskFlag(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")
	p := e.fixtures.CreateProject(ctx, "Casa Roble", obra.ID, testutil.WithTasks(
		models.Task{ID: "t-1", Title: "Levantamiento"},
	))

	rec := e.do(testutil.NewJSONRequest(http.MethodPut,
		"/"+p.ID.Hex()+"/tasks/t-1/completed", `{"value":true}`, asUser(obra)))
	rec.AssertStatus(t, http.StatusNoContent)

	got, err := e.projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Tasks[0].Completed {
		t.Error("task should be completed")
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPut,
		"/"+p.ID.Hex()+"/tasks/t-1/sparkle", `{"value":true}`, asUser(obra)))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = e.do(testutil.NewJSONRequest(http.MethodPut,
		"/"+p.ID.Hex()+"/tasks/missing/na", `{"value":true}`, asUser(obra)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestAssignTaskNotifies(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")
	assignee := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")
	p := e.fixtures.CreateProject(ctx, "Casa Roble", admin.ID, testutil.WithTasks(
		models.Task{ID: "t-1", Title: "Levantamiento"},
	))

	rec := e.do(testutil.NewJSONRequest(http.MethodPut,
		"/"+p.ID.Hex()+"/tasks/t-1/assignee",
		`{"user_id":"`+assignee.ID.Hex()+`"}`, asUser(admin)))
	rec.AssertStatus(t, http.StatusNoContent)

	select {
	case payload := <-e.notified:
		if payload.RecipientEmail != "beto@test.com" {
			t.Errorf("recipient: got %q", payload.RecipientEmail)
		}
		if payload.TaskTitle != "Levantamiento" {
			t.Errorf("task title: got %q", payload.TaskTitle)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no notification delivered")
	}

	got, err := e.projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Tasks[0].AssigneeID == nil || *got.Tasks[0].AssigneeID != assignee.ID {
		t.Error("task should record the assignee")
	}
}

func TestAssignTaskRequiresCapability(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")
	p := e.fixtures.CreateProject(ctx, "Casa Roble", obra.ID, testutil.WithTasks(
		models.Task{ID: "t-1", Title: "Levantamiento"},
	))

	rec := e.do(testutil.NewJSONRequest(http.MethodPut,
		"/"+p.ID.Hex()+"/tasks/t-1/assignee", `{"user_id":""}`, asUser(obra)))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestDeleteCascadesNotes(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")
	p := e.fixtures.CreateProject(ctx, "Casa Roble", admin.ID)
	e.fixtures.CreateNote(ctx, p.ID, admin.ID, "first visit")

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+p.ID.Hex(), asUser(admin)))
	rec.AssertStatus(t, http.StatusNoContent)

	notes, err := e.notes.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("notes should be deleted with the project, got %d", len(notes))
	}
}
