// internal/app/features/tasks/routes.go
package tasks

import "github.com/go-chi/chi/v5"

// Routes is mounted under /projects/{projectID}/tasks; the parent route
// carries the projectID URL param.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/", h.HandleUpdate)
		r.Post("/progress", h.HandleProgress)
		r.Put("/assignee", h.HandleAssign)
		r.Delete("/", h.HandleDelete)
	})
	return r
}
