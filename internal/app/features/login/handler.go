// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/auth"
	"github.com/atelieropen/obratrack/internal/app/system/normalize"
	"github.com/atelieropen/obratrack/internal/app/system/timeouts"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
	ErrLog     *uierrors.ErrorLogger
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Log:        logger,
		ErrLog:     uierrors.NewErrorLogger(logger),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ServeLogin handles POST /login. Wrong email, wrong password, and a
// deactivated account all return the same 401 so the response does not
// reveal which one it was.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "invalid request body")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		uierrors.RenderBadRequest(w, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, email)
	if err == mongo.ErrNoDocuments {
		renderBadCredentials(w)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "login: load user", err, "unable to sign in right now")
		return
	}
	if !user.Active || user.PasswordHash == "" {
		renderBadCredentials(w)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Log.Info("login: bad password", zap.String("email", email))
		renderBadCredentials(w)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, user.ID.Hex()); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, "unable to sign in right now")
		return
	}

	h.Log.Info("login: signed in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", user.Role))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		ID:       user.ID.Hex(),
		FullName: user.DisplayName(),
		Email:    user.Email,
		Role:     user.Role,
	})
}

func renderBadCredentials(w http.ResponseWriter) {
	uierrors.Render(w, http.StatusUnauthorized, "invalid email or password")
}
