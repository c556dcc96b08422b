// Package users is the account administration surface: create accounts,
// edit profiles and roles, deactivate, and remove.
package users

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/gates"
	"github.com/atelieropen/obratrack/internal/app/system/mailer"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Handler struct {
	Users    *userstore.Store
	Mail     *mailer.Mailer
	SiteName string
	LoginURL string
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(users *userstore.Store, mail *mailer.Mailer, siteName, loginURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Mail:     mail,
		SiteName: siteName,
		LoginURL: loginURL,
		Log:      logger,
		ErrLog:   uierrors.NewErrorLogger(logger),
	}
}

// userView is the JSON shape for an account; the password hash never
// leaves the server (the model tags it json:"-").
type userView struct {
	models.User
}

// ServeList handles GET /users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageUsers, "you can't manage accounts")
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Users.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "users: list", err, "unable to load accounts")
		return
	}

	renderJSON(w, http.StatusOK, list)
}

type createRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

// ServeCreate handles POST /users. A welcome email goes out on success;
// a delivery failure is logged but the account stands.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageUsers, "you can't manage accounts")
	if !g.OK {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		uierrors.RenderBadRequest(w, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "users: hash password", err, "unable to create the account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(hash),
	})
	if err == userstore.ErrDuplicateEmail {
		uierrors.Render(w, http.StatusConflict, "a user with this email already exists")
		return
	}
	if err != nil {
		// Validation errors from the store (bad role, missing email) are
		// the caller's fault; anything else is ours.
		uierrors.RenderBadRequest(w, err.Error())
		return
	}

	h.Log.Info("account created",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("created_by", g.UserID.Hex()))

	h.sendWelcome(u)

	renderJSON(w, http.StatusCreated, userView{u})
}

type updateRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// ServeUpdate handles PUT /users/{userID}. A role change takes effect on
// the target's next request; projects keep their stored member lists
// until someone saves their assignments again.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageUsers, "you can't manage accounts")
	if !g.OK {
		return
	}

	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Users.Apply(ctx, id, userstore.Update{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err == userstore.ErrDuplicateEmail {
		uierrors.Render(w, http.StatusConflict, "a user with this email already exists")
		return
	}
	if err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return
	}

	u, err := h.Users.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "account not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "users: reload", err, "unable to load the account")
		return
	}

	renderJSON(w, http.StatusOK, userView{*u})
}

type activeRequest struct {
	Active bool `json:"active"`
}

// ServeSetActive handles PUT /users/{userID}/active. Deactivation locks
// the account out on their next request without touching any project
// data; nobody may deactivate themselves.
func (h *Handler) ServeSetActive(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageUsers, "you can't manage accounts")
	if !g.OK {
		return
	}

	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if id == g.UserID {
		uierrors.RenderBadRequest(w, "you can't deactivate your own account")
		return
	}

	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.SetActive(ctx, id, req.Active); err != nil {
		h.ErrLog.LogServerError(w, r, "users: set active", err, "unable to update the account")
		return
	}

	h.Log.Info("account active flag changed",
		zap.String("user_id", id.Hex()),
		zap.Bool("active", req.Active),
		zap.String("changed_by", g.UserID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /users/{userID}. The document is removed
// outright; assignments naming the user become dangling references that
// drop out of project member lists at the project's next save. Nobody may
// delete themselves.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCapability(w, r, authz.ManageUsers, "you can't manage accounts")
	if !g.OK {
		return
	}

	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if id == g.UserID {
		uierrors.RenderBadRequest(w, "you can't delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.Delete(ctx, id); err == mongo.ErrNoDocuments {
		uierrors.RenderNotFound(w, "account not found")
		return
	} else if err != nil {
		h.ErrLog.LogServerError(w, r, "users: delete", err, "unable to delete the account")
		return
	}

	h.Log.Info("account deleted",
		zap.String("user_id", id.Hex()),
		zap.String("deleted_by", g.UserID.Hex()))

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendWelcome(u models.User) {
	if h.Mail == nil {
		return
	}
	email := mailer.BuildWelcomeEmail(mailer.WelcomeEmailData{
		SiteName:  h.SiteName,
		FirstName: u.FirstName,
		Email:     u.Email,
		LoginURL:  h.LoginURL,
	})
	email.To = u.Email

	go func() {
		if err := h.Mail.Send(email); err != nil {
			h.Log.Error("users: welcome email failed",
				zap.String("to", u.Email), zap.Error(err))
		}
	}()
}

func userIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		uierrors.RenderBadRequest(w, "invalid user id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
