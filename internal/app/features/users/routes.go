// internal/app/features/users/routes.go
package users

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

		pr.Route("/{userID}", func(pr chi.Router) {
			pr.Put("/", h.ServeUpdate)
			pr.Put("/active", h.ServeSetActive)
			pr.Delete("/", h.ServeDelete)
		})
	})

	return r
}
