// internal/app/features/login/handler_test.go
package login

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/auth"
	"github.com/atelieropen/obratrack/internal/domain/models"
	"github.com/atelieropen/obratrack/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	users := userstore.New(db)

	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "obratrack_test", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return NewHandler(users, sm, zap.NewNop()), users
}

func createAccount(t *testing.T, users *userstore.Store, email, password, role string, active bool) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}

	u, err := users.Create(ctx, models.User{Email: email, FirstName: "Test", LastName: "User", Role: role})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := users.SetPasswordHash(ctx, u.ID, string(hash)); err != nil {
		t.Fatalf("SetPasswordHash failed: %v", err)
	}
	if !active {
		if err := users.SetActive(ctx, u.ID, false); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}
	}
}

func postLogin(h *Handler, body string) *testutil.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()
	h.ServeLogin(rec.ResponseRecorder, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h, users := newTestHandler(t)
	createAccount(t, users, "ana@test.com", "secret123", "admin", true)

	rec := postLogin(h, `{"email":"ANA@test.com","password":"secret123"}`)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"role":"admin"`)
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, users := newTestHandler(t)
	createAccount(t, users, "ana@test.com", "secret123", "admin", true)

	rec := postLogin(h, `{"email":"ana@test.com","password":"wrong"}`)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoginUnknownEmail(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postLogin(h, `{"email":"nobody@test.com","password":"secret123"}`)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoginInactiveAccount(t *testing.T) {
	h, users := newTestHandler(t)
	createAccount(t, users, "ana@test.com", "secret123", "admin", false)

	rec := postLogin(h, `{"email":"ana@test.com","password":"secret123"}`)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestLoginBadBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postLogin(h, `{`)
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = postLogin(h, `{"email":"","password":""}`)
	rec.AssertStatus(t, http.StatusBadRequest)
}
