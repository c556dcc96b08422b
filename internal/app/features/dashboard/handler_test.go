// internal/app/features/dashboard/handler_test.go
package dashboard

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	projectstore "github.com/atelieropen/obratrack/internal/app/store/projects"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/domain/models"
	"github.com/atelieropen/obratrack/internal/testutil"
)

type env struct {
	fixtures *testutil.Fixtures
	router   http.Handler
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)

	h := NewHandler(projectstore.New(db), userstore.New(db), zap.NewNop())
	return &env{
		fixtures: testutil.NewFixtures(t, db),
		router:   Routes(h),
	}
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec.ResponseRecorder, req)
	return rec
}

func asUser(u models.User) testutil.TestUser {
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.DisplayName(), Email: u.Email, Role: u.Role}
}

func TestDashboardRequiresAuth(t *testing.T) {
	e := setup(t)

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestDashboardScopesAndCounts(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := e.fixtures.CreateUser(ctx, "Ana Duarte", "ana@test.com", "admin")
	obra := e.fixtures.CreateUser(ctx, "Beto Lima", "beto@test.com", "obra")

	e.fixtures.CreateProject(ctx, "Mine", obra.ID, testutil.WithTasks(
		models.Task{ID: "t-1", Title: "Levantamiento", Completed: true},
		models.Task{ID: "t-2", Title: "Planos", AssigneeID: &obra.ID},
		models.Task{ID: "t-3", Title: "Permisos", NA: true},
	))
	e.fixtures.CreateProject(ctx, "Hidden", admin.ID)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", asUser(obra)))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Viewer struct {
			Role string `json:"role"`
		} `json:"viewer"`
		Projects []struct {
			Title    string `json:"title"`
			Progress int    `json:"progress"`
		} `json:"projects"`
		Summary struct {
			Projects       int  `json:"projects"`
			TasksTotal     int  `json:"tasks_total"`
			TasksCompleted int  `json:"tasks_completed"`
			AssignedToMe   int  `json:"assigned_to_me"`
			Accounts       *int `json:"accounts"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Viewer.Role != "obra" {
		t.Errorf("viewer role: got %q", resp.Viewer.Role)
	}
	if len(resp.Projects) != 1 || resp.Projects[0].Title != "Mine" {
		t.Fatalf("unexpected projects: %+v", resp.Projects)
	}
	// One of two effective tasks done; the NA task doesn't count.
	if resp.Projects[0].Progress != 50 {
		t.Errorf("progress: got %d, want 50", resp.Projects[0].Progress)
	}
	if resp.Summary.TasksTotal != 2 || resp.Summary.TasksCompleted != 1 {
		t.Errorf("task counts: got %d/%d, want 1/2",
			resp.Summary.TasksCompleted, resp.Summary.TasksTotal)
	}
	if resp.Summary.AssignedToMe != 1 {
		t.Errorf("assigned_to_me: got %d, want 1", resp.Summary.AssignedToMe)
	}
	// Only user administrators see the account counter.
	if resp.Summary.Accounts != nil {
		t.Error("obra viewer should not see the account count")
	}

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/", asUser(admin)))
	rec.AssertStatus(t, http.StatusOK)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Projects) != 2 {
		t.Errorf("admin should see all projects, got %d", len(resp.Projects))
	}
	if resp.Summary.Accounts == nil || *resp.Summary.Accounts != 2 {
		t.Errorf("admin account count: got %v, want 2", resp.Summary.Accounts)
	}
}

func TestCardsComputeProgress(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", Completed: true},
		{ID: "b"},
		{ID: "c", NA: true},
	}
	got := cards([]models.Project{{ID: primitive.NewObjectID(), Title: "P", Tasks: tasks}})
	if len(got) != 1 {
		t.Fatalf("cards: got %d", len(got))
	}
	if got[0].Progress != 50 {
		t.Errorf("progress: got %d, want 50", got[0].Progress)
	}
	if got[0].Tasks != 3 {
		t.Errorf("task count: got %d, want 3", got[0].Tasks)
	}
}
