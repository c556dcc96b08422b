// internal/app/features/projects/routes.go
package projects

import (
	"github.com/go-chi/chi/v5"

	"github.com/atelieropen/obratrack/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.ServeCreate)

		pr.Route("/{projectID}", func(pr chi.Router) {
			pr.Get("/", h.ServeGet)
			pr.Put("/", h.ServeUpdate)
			pr.Delete("/", h.ServeDelete)

			pr.Put("/tasks/{taskID}/assignee", h.ServeAssignTask)
			pr.Put("/tasks/{taskID}/{flag}", h.ServeSetTaskFlag)
		})
	})

	return r
}
