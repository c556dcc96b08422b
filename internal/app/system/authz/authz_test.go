package authz_test

import (
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelieropen/obratrack/internal/app/system/auth"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
)

func TestUserCtx_SignedIn(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Name: "Ana Ruiz", Role: "Director"})

	role, name, uid, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if role != "director" {
		t.Errorf("role: got %q, want lowercased %q", role, "director")
	}
	if name != "Ana Ruiz" {
		t.Errorf("name: got %q", name)
	}
	if uid != id {
		t.Errorf("userID: got %s, want %s", uid.Hex(), id.Hex())
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-an-object-id", Role: "admin"})

	_, _, _, ok := authz.UserCtx(req)
	if ok {
		t.Error("malformed session user ID must fail closed")
	}
}

func TestUserCtx_Anonymous(t *testing.T) {
	_, _, _, ok := authz.UserCtx(httptest.NewRequest("GET", "/", nil))
	if ok {
		t.Error("expected ok=false with no user in context")
	}
}

func TestRequestCan(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: authz.RoleObra})

	if !authz.RequestCan(req, authz.EditChecklist) {
		t.Error("obra should edit checklists")
	}
	if authz.RequestCan(req, authz.ManageProjects) {
		t.Error("obra must not manage projects")
	}
}
