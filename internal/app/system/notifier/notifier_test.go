package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/atelieropen/obratrack/internal/app/system/notifier"
)

func TestSend_PostsExpectedBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := notifier.New(srv.URL, zap.NewNop())
	err := c.Send(context.Background(), notifier.Payload{
		RecipientEmail: "obra@estudio.example",
		RecipientName:  "Nuria Vidal",
		TaskTitle:      "Replanteo de cimentación",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got["recipientEmail"] != "obra@estudio.example" {
		t.Errorf("recipientEmail: got %q", got["recipientEmail"])
	}
	if got["recipientName"] != "Nuria Vidal" {
		t.Errorf("recipientName: got %q", got["recipientName"])
	}
	if got["taskTitle"] != "Replanteo de cimentación" {
		t.Errorf("taskTitle: got %q", got["taskTitle"])
	}
}

func TestSend_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := notifier.New(srv.URL, zap.NewNop())
	if err := c.Send(context.Background(), notifier.Payload{RecipientEmail: "x@example.com"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestSend_EmptyEndpointIsNoop(t *testing.T) {
	c := notifier.New("", zap.NewNop())
	if err := c.Send(context.Background(), notifier.Payload{RecipientEmail: "x@example.com"}); err != nil {
		t.Fatalf("empty endpoint should drop silently, got %v", err)
	}
}

func TestSend_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := notifier.New(srv.URL, zap.NewNop())
	for i := 0; i < 6; i++ {
		_ = c.Send(context.Background(), notifier.Payload{RecipientEmail: "x@example.com"})
	}

	// Trips after more than 3 consecutive failures; later sends fail fast
	// without reaching the endpoint.
	if calls > 4 {
		t.Errorf("endpoint called %d times; breaker should have opened after 4", calls)
	}
}
