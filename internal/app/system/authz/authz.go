// Package authz answers "may this request do that" questions.
//
// Role strings never get compared inline in handlers; every access point
// goes through the capability table (capabilities.go) via RequestCan, or
// through UserCtx when a handler only needs to know who is asking.
package authz

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelieropen/obratrack/internal/app/system/auth"
)

// UserCtx returns the user's role (lowercased), display name, ObjectID, and
// a found flag. If no user is present in context or the session user ID is
// malformed, it returns "", "", NilObjectID, false — callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session; fail closed.
		return "", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// RequestCan reports whether the current request's user holds the
// capability. Anonymous requests hold nothing.
func RequestCan(r *http.Request, c Capability) bool {
	role, _, _, ok := UserCtx(r)
	return ok && Can(role, c)
}
