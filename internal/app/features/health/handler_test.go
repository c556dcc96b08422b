// internal/app/features/health/handler_test.go
package health

import (
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/atelieropen/obratrack/internal/testutil"
)

func TestServeReportsConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)

	h := NewHandler(db.Client(), zap.NewNop())

	req := testutil.NewRequest(http.MethodGet, "/health")
	rec := testutil.NewRecorder()
	h.Serve(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
