// Package gates provides authorization gate functions for HTTP handlers.
// Gates check authentication and capability, rendering the error response
// when checks fail.
//
// Authorization is layered:
//
//  1. Route-level middleware (auth.RequireSignedIn) in routes.go files for
//     the signed-in requirement shared by a whole route group.
//  2. Handler-level gates (this package) for the capability a specific
//     operation needs. Capabilities come from the authz capability table;
//     gates never compare role strings themselves.
//  3. Per-document checks (e.g. "can this viewer see this project") done
//     against the loaded document in the store or handler.
//
// Don't stack a gate on a capability the route middleware already
// guarantees; use authz.UserCtx to read the user context instead.
package gates

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
)

// Result contains the outcome of a gate check.
type Result struct {
	Role   string
	Name   string
	UserID primitive.ObjectID
	OK     bool
}

// RequireAuth ensures a user is authenticated. If not, it renders a 401
// and returns OK=false.
func RequireAuth(w http.ResponseWriter, r *http.Request) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w)
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

// RequireCapability ensures the user is authenticated and that their role
// holds the capability. Renders 401/403 as appropriate and returns
// OK=false on failure.
func RequireCapability(w http.ResponseWriter, r *http.Request, c authz.Capability, forbiddenMsg string) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w)
		return Result{OK: false}
	}
	if !authz.Can(role, c) {
		uierrors.RenderForbidden(w, forbiddenMsg)
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}
