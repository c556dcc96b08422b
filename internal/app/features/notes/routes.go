// internal/app/features/notes/routes.go
package notes

import (
	"github.com/go-chi/chi/v5"

	"github.com/atelieropen/obratrack/internal/app/system/auth"
)

// Routes is mounted under /projects/{projectID}/notes; the projectID
// parameter comes from the mount pattern.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.ServeCreate)
		pr.Put("/{noteID}", h.ServeUpdate)
		pr.Delete("/{noteID}", h.ServeDelete)
	})

	return r
}
