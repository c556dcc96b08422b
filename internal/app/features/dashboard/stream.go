// internal/app/features/dashboard/stream.go
package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	uierrors "github.com/atelieropen/obratrack/internal/app/features/errors"
	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/gates"
	"github.com/atelieropen/obratrack/internal/app/system/livefeed"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

const keepAliveInterval = 25 * time.Second

// ServeStream handles GET /dashboard/stream as server-sent events. The
// client gets a full "projects" snapshot whenever the merged feed set
// changes, starting with the initial state; a failed feed emits one
// "feederror" event while the remaining feeds keep streaming.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		uierrors.Render(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var feeds []livefeed.Feed
	if authz.Can(g.Role, authz.ViewAllProjects) {
		feeds = []livefeed.Feed{h.Projects.AllFeed()}
	} else {
		feeds = []livefeed.Feed{
			h.Projects.OwnerFeed(g.UserID),
			h.Projects.MemberFeed(g.UserID),
			h.Projects.RoleFeed(g.Role),
		}
	}

	// Snapshots are coalesced: if the client is slow, intermediate states
	// are dropped and only the latest one is sent.
	snapshots := make(chan []models.Project, 1)
	feedErrs := make(chan string, len(feeds))

	cancel := livefeed.Merge(
		func(ps []models.Project) {
			for {
				select {
				case snapshots <- ps:
					return
				default:
					select {
					case <-snapshots:
					default:
					}
				}
			}
		},
		func(feed string, err error) {
			h.Log.Error("dashboard stream feed failed",
				zap.String("feed", feed),
				zap.String("user_id", g.UserID.Hex()),
				zap.Error(err))
			select {
			case feedErrs <- feed:
			default:
			}
		},
		feeds...,
	)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ps := <-snapshots:
			if err := writeEvent(w, "projects", cards(ps)); err != nil {
				return
			}
			flusher.Flush()
		case feed := <-feedErrs:
			if err := writeEvent(w, "feederror", map[string]string{"feed": feed}); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
