// Package notes serves the running log each project carries: site-visit
// observations, client decisions, anything worth keeping next to the
// checklist.
package notes

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
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/gates"
	"github.com/atelieropen/obratrack/internal/app/system/htmlsanitize"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Handler struct {
	Notes    *notestore.Store
	Projects *projectstore.Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(notes *notestore.Store, projects *projectstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Notes:    notes,
		Projects: projects,
		Log:      logger,
		ErrLog:   uierrors.NewErrorLogger(logger),
	}
}

// ServeList handles GET /projects/{projectID}/notes.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	p, ok := h.loadVisibleProject(w, r, g)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	notes, err := h.Notes.ListByProject(ctx, p.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "notes: list", err, "unable to load notes")
		return
	}

	renderJSON(w, http.StatusOK, notes)
}

type noteRequest struct {
	Body string `json:"body"`
}

func (nr *noteRequest) clean() {
	nr.Body = strings.TrimSpace(htmlsanitize.Sanitize(nr.Body))
}

// ServeCreate handles POST /projects/{projectID}/notes.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.WriteNotes, "you can't write notes")
	if !g.OK {
		return
	}

	p, ok := h.loadVisibleProject(w, r, g)
	if !ok {
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}
	req.clean()
	if req.Body == "" {
		uierrors.RenderBadRequest(w, "note body is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	note, err := h.Notes.Create(ctx, p.ID, g.UserID, req.Body)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "notes: create", err, "unable to save the note")
		return
	}

	renderJSON(w, http.StatusCreated, note)
}

// ServeUpdate handles PUT /projects/{projectID}/notes/{noteID}. Only the
// author may edit a note; there is no admin override for edits.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.WriteNotes, "you can't write notes")
	if !g.OK {
		return
	}

	note, ok := h.loadNote(w, r, g)
	if !ok {
		return
	}
	if note.AuthorID != g.UserID {
		uierrors.RenderForbidden(w, "only the author can edit a note")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}
	req.clean()
	if req.Body == "" {
		uierrors.RenderBadRequest(w, "note body is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Notes.SetBody(ctx, note.ID, req.Body); err != nil {
		h.ErrLog.LogServerError(w, r, "notes: update", err, "unable to save the note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /projects/{projectID}/notes/{noteID}. The
// author may always remove their own note; project managers may remove
// anyone's.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	note, ok := h.loadNote(w, r, g)
	if !ok {
		return
	}
	if note.AuthorID != g.UserID && !authz.Can(g.Role, authz.ManageProjects) {
		uierrors.RenderForbidden(w, "you can't delete this note")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Notes.Delete(ctx, note.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "notes: delete", err, "unable to delete the note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadNote resolves the note from the URL, checking that it belongs to a
// project the viewer can see.
func (h *Handler) loadNote(w http.ResponseWriter, r *http.Request, g gates.Result) (*models.Note, bool) {
	p, ok := h.loadVisibleProject(w, r, g)
	if !ok {
		return nil, false
	}

	noteID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "noteID"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid note id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	note, err := h.Notes.Get(ctx, noteID)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "note not found")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "notes: load", err, "unable to load the note")
		return nil, false
	}
	if note.ProjectID != p.ID {
		uierrors.RenderNotFound(w, "note not found")
		return nil, false
	}
	return note, true
}

func (h *Handler) loadVisibleProject(w http.ResponseWriter, r *http.Request, g gates.Result) (*models.Project, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid project id")
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
		h.ErrLog.LogServerError(w, r, "notes: load project", err, "unable to load the project")
		return nil, false
	}
	if !authz.Can(g.Role, authz.ViewAllProjects) && !p.VisibleTo(g.UserID, g.Role) {
		uierrors.RenderNotFound(w, "project not found")
		return nil, false
	}
	return p, true
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
