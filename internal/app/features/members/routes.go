// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// Routes is mounted under /projects/{projectID}/members; the parent
// route carries the projectID URL param.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleAdd)
	r.Post("/leave", h.HandleLeave)
	r.Put("/{membershipID}/role", h.HandleSetRole)
	r.Delete("/{membershipID}", h.HandleRemove)
	return r
}
