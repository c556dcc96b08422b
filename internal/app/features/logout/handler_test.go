// internal/app/features/logout/handler_test.go
package logout

import (
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/atelieropen/obratrack/internal/app/system/auth"
	"github.com/atelieropen/obratrack/internal/testutil"
)

func TestLogoutClearsSession(t *testing.T) {
	sm, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "obratrack_test", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	h := NewHandler(sm, zap.NewNop())

	req := testutil.NewRequest(http.MethodPost, "/logout")
	rec := testutil.NewRecorder()
	h.ServeLogout(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNoContent)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "obratrack_test" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected an expired session cookie")
	}
}
