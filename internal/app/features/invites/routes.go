// internal/app/features/invites/routes.go
package invites

import "github.com/go-chi/chi/v5"

// ProjectRoutes is mounted under /projects/{projectID}/invites; the
// parent route carries the projectID URL param.
func ProjectRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleGenerate)
	r.Get("/", h.HandleList)
	r.Delete("/{inviteID}", h.HandleDisable)
	return r
}

// PublicRoutes serves token resolution and acceptance under /invites,
// outside the session gate. Resolution is open to anyone holding a
// token; HandleAccept enforces sign-in on its own.
func PublicRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.HandleResolve)
	r.Post("/{token}/accept", h.HandleAccept)
	return r
}
