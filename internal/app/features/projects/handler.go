// Package projects is the checklist heart of the app: project CRUD,
// assignment editing, per-task toggles, and task handoff with
// notification.
package projects

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	notestore "github.com/atelieropen/obratrack/internal/app/store/notes"
	projectstore "github.com/atelieropen/obratrack/internal/app/store/projects"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/gates"
	"github.com/atelieropen/obratrack/internal/app/system/htmlsanitize"
	"github.com/atelieropen/obratrack/internal/app/system/membership"
	"github.com/atelieropen/obratrack/internal/app/system/normalize"
	"github.com/atelieropen/obratrack/internal/app/system/notifier"
	"github.com/atelieropen/obratrack/internal/app/system/progress"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Handler struct {
	Projects *projectstore.Store
	Notes    *notestore.Store
	Users    *userstore.Store
	Notify   *notifier.Client
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(projects *projectstore.Store, notes *notestore.Store, users *userstore.Store, notify *notifier.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projects,
		Notes:    notes,
		Users:    users,
		Notify:   notify,
		Log:      logger,
		ErrLog:   uierrors.NewErrorLogger(logger),
	}
}

// projectView is the JSON shape for a project including its computed
// completion percentage. The derived percentage is never stored; it is
// recomputed from the embedded tasks on every render.
type projectView struct {
	models.Project
	Progress int `json:"progress"`
}

func view(p models.Project) projectView {
	return projectView{Project: p, Progress: progress.Percent(p.Tasks)}
}

func views(ps []models.Project) []projectView {
	out := make([]projectView, 0, len(ps))
	for _, p := range ps {
		out = append(out, view(p))
	}
	return out
}

// ServeList handles GET /projects. Viewers with ViewAllProjects get every
// project; everyone else gets the visibility union (owned, member of,
// role allowed).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
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
	if authz.Can(g.Role, authz.ViewAllProjects) {
		list, err = h.Projects.ListAll(ctx)
	} else {
		list, err = h.Projects.ListVisible(ctx, g.UserID, g.Role)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: list", err, "unable to load projects")
		return
	}

	renderJSON(w, http.StatusOK, views(list))
}

// projectRequest is the write shape shared by create and update.
type projectRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Assignments []models.Assignment `json:"assignments"`
	Sections    []models.Section    `json:"sections"`
	Tasks       []models.Task       `json:"tasks"`
}

func (pr *projectRequest) clean() {
	pr.Title = normalize.Name(pr.Title)
	pr.Description = htmlsanitize.Sanitize(pr.Description)
	for i := range pr.Sections {
		pr.Sections[i].Title = normalize.Name(pr.Sections[i].Title)
	}
	for i := range pr.Tasks {
		pr.Tasks[i].Title = normalize.Name(pr.Tasks[i].Title)
	}
}

func (pr *projectRequest) validate() string {
	if pr.Title == "" {
		return "title is required"
	}
	if err := membership.ValidateAssignments(pr.Assignments); err != nil {
		return err.Error()
	}
	sectionIDs := make(map[string]struct{}, len(pr.Sections))
	for _, s := range pr.Sections {
		if s.ID != "" {
			sectionIDs[s.ID] = struct{}{}
		}
	}
	for _, t := range pr.Tasks {
		if t.Title == "" {
			return "every task needs a title"
		}
		if t.SectionID != "" {
			if _, ok := sectionIDs[t.SectionID]; !ok {
				return "task " + strings.TrimSpace(t.Title) + " references an unknown section"
			}
		}
	}
	return ""
}

// ServeCreate handles POST /projects.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageProjects, "you can't create projects")
	if !g.OK {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}
	req.clean()
	if msg := req.validate(); msg != "" {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.Projects.Create(ctx, models.Project{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   g.UserID,
		Assignments: req.Assignments,
		Sections:    req.Sections,
		Tasks:       req.Tasks,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: create", err, "unable to create the project")
		return
	}

	h.Log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("created_by", g.UserID.Hex()))

	renderJSON(w, http.StatusCreated, view(p))
}

// ServeGet handles GET /projects/{projectID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	p, ok := h.loadVisible(w, r, g)
	if !ok {
		return
	}

	renderJSON(w, http.StatusOK, view(*p))
}

// ServeUpdate handles PUT /projects/{projectID}. The whole editable
// surface is replaced; the later of two concurrent saves wins.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageProjects, "you can't edit projects")
	if !g.OK {
		return
	}

	id, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}
	req.clean()
	if msg := req.validate(); msg != "" {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.Projects.Apply(ctx, id, projectstore.Update{
		Title:       req.Title,
		Description: req.Description,
		Assignments: req.Assignments,
		Sections:    req.Sections,
		Tasks:       req.Tasks,
	})
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "project not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: update", err, "unable to save the project")
		return
	}

	renderJSON(w, http.StatusOK, view(*p))
}

// ServeDelete handles DELETE /projects/{projectID}. The project's notes
// go with it; a failure on the note sweep is logged but does not undo the
// already-deleted project.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageProjects, "you can't delete projects")
	if !g.OK {
		return
	}

	id, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Projects.Delete(ctx, id); err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "project not found")
		return
	} else if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: delete", err, "unable to delete the project")
		return
	}

	if n, err := h.Notes.DeleteByProject(ctx, id); err != nil {
		h.Log.Error("projects: delete note sweep failed",
			zap.String("project_id", id.Hex()), zap.Error(err))
	} else if n > 0 {
		h.Log.Info("projects: deleted notes with project",
			zap.String("project_id", id.Hex()), zap.Int64("notes", n))
	}

	w.WriteHeader(http.StatusNoContent)
}

type flagRequest struct {
	Value bool `json:"value"`
}

// ServeSetTaskFlag handles PUT /projects/{projectID}/tasks/{taskID}/{flag}
// for flag in completed|favorite|na. The update is keyed to the one task
// so two people toggling different tasks never clobber each other.
func (h *Handler) ServeSetTaskFlag(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.EditChecklist, "you can't edit checklists")
	if !g.OK {
		return
	}

	flag, ok := taskFlagParam(w, r)
	if !ok {
		return
	}

	p, ok := h.loadVisible(w, r, g)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "taskID")

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Projects.SetTaskFlag(ctx, p.ID, taskID, flag, req.Value); err == projectstore.ErrTaskNotFound {
		uierrors.RenderNotFound(w, "task not found")
		return
	} else if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: set task flag", err, "unable to update the task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

// ServeAssignTask handles PUT /projects/{projectID}/tasks/{taskID}/assignee.
// An empty user_id clears the assignment. Assigning fires a notification
// to the assignee; delivery is best-effort and never blocks the response.
func (h *Handler) ServeAssignTask(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.AssignTasks, "you can't assign tasks")
	if !g.OK {
		return
	}

	p, ok := h.loadVisible(w, r, g)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "taskID")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if req.UserID == "" {
		if err := h.Projects.AssignTask(ctx, p.ID, taskID, primitive.NilObjectID); err == projectstore.ErrTaskNotFound {
			uierrors.RenderNotFound(w, "task not found")
			return
		} else if err != nil {
			h.ErrLog.LogServerError(w, r, "projects: clear assignment", err, "unable to update the task")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	assigneeID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid user id")
		return
	}

	assignee, err := h.Users.GetByID(ctx, assigneeID)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderBadRequest(w, "no such user")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: load assignee", err, "unable to update the task")
		return
	}
	if !assignee.Active {
		uierrors.RenderBadRequest(w, "that account is deactivated")
		return
	}

	if err := h.Projects.AssignTask(ctx, p.ID, taskID, assigneeID); err == projectstore.ErrTaskNotFound {
		uierrors.RenderNotFound(w, "task not found")
		return
	} else if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: assign task", err, "unable to update the task")
		return
	}

	title := taskTitle(p, taskID)
	h.Notify.SendAsync(notifier.Payload{
		RecipientEmail: assignee.Email,
		RecipientName:  assignee.DisplayName(),
		TaskTitle:      title,
	})

	h.Log.Info("task assigned",
		zap.String("project_id", p.ID.Hex()),
		zap.String("task_id", taskID),
		zap.String("assignee", assigneeID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

// loadVisible fetches the project from the URL and enforces per-document
// visibility: the viewer must see it through ownership, membership, or
// role, unless their role holds ViewAllProjects. Renders the error and
// returns ok=false on any failure.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request, g gates.Result) (*models.Project, bool) {
	id, ok := projectIDParam(w, r)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Projects.Get(ctx, id)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "project not found")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "projects: load", err, "unable to load the project")
		return nil, false
	}

	if !authz.Can(g.Role, authz.ViewAllProjects) && !p.VisibleTo(g.UserID, g.Role) {
		// 404, not 403: don't confirm the project exists.
		uierrors.RenderNotFound(w, "project not found")
		return nil, false
	}
	return p, true
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid project id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func taskFlagParam(w http.ResponseWriter, r *http.Request) (projectstore.TaskFlag, bool) {
	switch chi.URLParam(r, "flag") {
	case "completed":
		return projectstore.TaskCompleted, true
	case "favorite":
		return projectstore.TaskFavorite, true
	case "na":
		return projectstore.TaskNA, true
	default:
		uierrors.RenderBadRequest(w, "unknown task flag")
		return "", false
	}
}

func taskTitle(p *models.Project, taskID string) string {
	for _, t := range p.Tasks {
		if t.ID == taskID {
			return t.Title
		}
	}
	return ""
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
