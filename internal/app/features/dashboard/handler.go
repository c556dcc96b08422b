// Package dashboard serves the landing surface: the viewer's project
// list with completion percentages, a few counters, and a live variant
// over SSE that tracks the database as it changes.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	projectstore "github.com/atelieropen/obratrack/internal/app/store/projects"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/gates"
	"github.com/atelieropen/obratrack/internal/app/system/progress"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Handler struct {
	Projects *projectstore.Store
	Users    *userstore.Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(projects *projectstore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projects,
		Users:    users,
		Log:      logger,
		ErrLog:   uierrors.NewErrorLogger(logger),
	}
}

type projectCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
	Tasks    int    `json:"tasks"`
}

type summary struct {
	Projects       int  `json:"projects"`
	TasksTotal     int  `json:"tasks_total"`
	TasksCompleted int  `json:"tasks_completed"`
	AssignedToMe   int  `json:"assigned_to_me"`
	Accounts       *int `json:"accounts,omitempty"`
}

type dashboardResponse struct {
	Viewer   viewerInfo    `json:"viewer"`
	Projects []projectCard `json:"projects"`
	Summary  summary       `json:"summary"`
}

type viewerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Serve handles GET /dashboard. The project scope is the same one the
// stream endpoint tracks live: everything for ViewAllProjects roles, the
// visibility union for everyone else.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		list []models.Project
		err  error
	)
	seesAll := authz.Can(g.Role, authz.ViewAllProjects)
	if seesAll {
		list, err = h.Projects.ListAll(ctx)
	} else {
		list, err = h.Projects.ListVisible(ctx, g.UserID, g.Role)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard: list projects", err, "unable to load the dashboard")
		return
	}

	resp := dashboardResponse{
		Viewer:   viewerInfo{ID: g.UserID.Hex(), Name: g.Name, Role: g.Role},
		Projects: cards(list),
	}
	for _, p := range list {
		resp.Summary.Projects++
		for _, t := range p.Tasks {
			if t.NA {
				continue
			}
			resp.Summary.TasksTotal++
			if t.Completed {
				resp.Summary.TasksCompleted++
			}
			if t.AssigneeID != nil && *t.AssigneeID == g.UserID && !t.Completed {
				resp.Summary.AssignedToMe++
			}
		}
	}

	// User administrators also get the account count.
	if authz.Can(g.Role, authz.ManageUsers) {
		users, err := h.Users.List(ctx)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "dashboard: count accounts", err, "unable to load the dashboard")
			return
		}
		n := len(users)
		resp.Summary.Accounts = &n
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func cards(list []models.Project) []projectCard {
	out := make([]projectCard, 0, len(list))
	for _, p := range list {
		out = append(out, projectCard{
			ID:       p.ID.Hex(),
			Title:    p.Title,
			Progress: progress.Percent(p.Tasks),
			Tasks:    len(p.Tasks),
		})
	}
	return out
}
