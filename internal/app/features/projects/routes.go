// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes serves the project endpoints and mounts the project-scoped
// subrouters (members, tasks, invites) under /{projectID} so they share
// the URL param.
func Routes(h *Handler, members, tasks, invites chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleListMine)
	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/", h.HandleUpdateInfo)
		r.Put("/settings", h.HandleUpdateSettings)
		r.Delete("/", h.HandleDelete)

		r.Mount("/members", members)
		r.Mount("/tasks", tasks)
		r.Mount("/invites", invites)
	})
	return r
}
