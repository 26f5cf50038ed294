// Package projects provides project CRUD and settings endpoints.
// Every project-scoped route resolves the caller's membership first and
// asks projectpolicy for a decision before touching the stores.
package projects

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	apierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/policy/projectpolicy"
	membershipstore "github.com/dalemusser/taskhub/internal/app/store/memberships"
	projectstore "github.com/dalemusser/taskhub/internal/app/store/projects"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
)

type Handler struct {
	Projects    *projectstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
	ErrLog      *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, logger *zap.Logger, errLog *apierrors.ErrorLogger) *Handler {
	return &Handler{
		Projects:    projectstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
	}
}

type projectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	OwnerID     string                 `json:"owner_id"`
	Settings    models.ProjectSettings `json:"settings"`
	TaskCount   int                    `json:"task_count"`
}

func toProjectResponse(p models.Project) projectResponse {
	return projectResponse{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID.Hex(),
		Settings:    p.Settings,
		TaskCount:   len(p.TaskIDs),
	}
}

// HandleCreate creates a project; the caller becomes its administrator.
// POST /projects
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		apierrors.WriteFault(w, faults.Forbidden("sign-in required"))
		return
	}

	var req projectInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		apierrors.WriteFault(w, faults.Validation("name", "project name is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Projects.Create(ctx, req.Name, htmlsanitize.Sanitize(req.Description), userID)
	if err != nil {
		h.writeError(w, r, "projects: create failed", err)
		return
	}

	h.Log.Info("project created",
		zap.String("project_id", p.ID.Hex()),
		zap.String("owner_id", userID.Hex()),
	)
	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

// HandleListMine lists the projects the caller belongs to.
// GET /projects
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		apierrors.WriteFault(w, faults.Forbidden("sign-in required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ids, err := h.Memberships.ListProjectIDsByUser(ctx, userID)
	if err != nil {
		h.writeError(w, r, "projects: list memberships failed", err)
		return
	}
	list, err := h.Projects.ListByIDs(ctx, ids)
	if err != nil {
		h.writeError(w, r, "projects: list by ids failed", err)
		return
	}

	out := make([]projectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one project the caller can view.
// GET /projects/{projectID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, _, err := h.authorize(ctx, r, projectpolicy.ActionViewProject)
	if err != nil {
		h.writeError(w, r, "projects: get failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

// HandleUpdateInfo renames the project or rewrites its description.
// PATCH /projects/{projectID}
func (h *Handler) HandleUpdateInfo(w http.ResponseWriter, r *http.Request) {
	var req projectInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		apierrors.WriteFault(w, faults.Validation("name", "project name is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, _, err := h.authorize(ctx, r, projectpolicy.ActionManageSettings)
	if err != nil {
		h.writeError(w, r, "projects: update authorize failed", err)
		return
	}

	if err := h.Projects.UpdateInfo(ctx, p.ID, req.Name, htmlsanitize.Sanitize(req.Description)); err != nil {
		h.writeError(w, r, "projects: update info failed", err)
		return
	}

	updated, err := h.Projects.GetByID(ctx, p.ID)
	if err != nil {
		h.writeError(w, r, "projects: reload after update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(updated))
}

// HandleUpdateSettings replaces the project's settings toggles.
// PUT /projects/{projectID}/settings
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, _, err := h.authorize(ctx, r, projectpolicy.ActionManageSettings)
	if err != nil {
		h.writeError(w, r, "projects: settings authorize failed", err)
		return
	}

	if err := h.Projects.UpdateSettings(ctx, p.ID, req); err != nil {
		h.writeError(w, r, "projects: update settings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleDelete deletes the project and everything attached to it.
// DELETE /projects/{projectID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, _, err := h.authorize(ctx, r, projectpolicy.ActionDeleteProject)
	if err != nil {
		h.writeError(w, r, "projects: delete authorize failed", err)
		return
	}

	if err := h.Projects.Delete(ctx, p.ID); err != nil {
		h.writeError(w, r, "projects: delete failed", err)
		return
	}

	h.Log.Info("project deleted", zap.String("project_id", p.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}

// authorize loads the project and its membership roster, then asks the
// policy whether the caller may perform action. It returns the project
// and roster so handlers don't load them twice.
func (h *Handler) authorize(ctx context.Context, r *http.Request, action projectpolicy.Action) (models.Project, []models.Membership, error) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		return models.Project{}, nil, faults.Forbidden("sign-in required")
	}

	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		return models.Project{}, nil, faults.NotFound("project not found")
	}

	p, err := h.Projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, nil, err
	}
	members, err := h.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return models.Project{}, nil, err
	}

	if d := projectpolicy.Decide(userID, members, action, nil); !d.Allowed {
		return models.Project{}, nil, faults.Forbidden(d.Reason)
	}
	return p, members, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if faults.Code(err) == "" {
		h.ErrLog.ServerError(w, r, msg, err)
		return
	}
	apierrors.WriteFault(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
