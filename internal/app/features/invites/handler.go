// Package invites manages join-by-link: administrators mint and disable
// invite links, signed-in users resolve a token to a project and accept
// it to join. A link whose project has join-by-link disabled resolves
// exactly like an unknown token.
package invites

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
	invitestore "github.com/dalemusser/taskhub/internal/app/store/invites"
	membershipstore "github.com/dalemusser/taskhub/internal/app/store/memberships"
	projectstore "github.com/dalemusser/taskhub/internal/app/store/projects"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
)

type Handler struct {
	Invites     *invitestore.Store
	Projects    *projectstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Log         *zap.Logger
	ErrLog      *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, logger *zap.Logger, errLog *apierrors.ErrorLogger) *Handler {
	return &Handler{
		Invites:     invitestore.New(db),
		Projects:    projectstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
	}
}

type inviteResponse struct {
	PublicID string `json:"public_id"`
	Token    string `json:"token"`
	Active   bool   `json:"active"`
}

func toInviteResponse(l models.InviteLink) inviteResponse {
	return inviteResponse{PublicID: l.PublicID, Token: l.Token, Active: l.Active}
}

// HandleGenerate mints a new invite link for the project.
// POST /projects/{projectID}/invites
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, projectID, err := h.authorize(ctx, r, projectpolicy.ActionGenerateInvite)
	if err != nil {
		h.writeError(w, r, "invites: generate authorize failed", err)
		return
	}

	l, err := h.Invites.Create(ctx, projectID, userID)
	if err != nil {
		h.writeError(w, r, "invites: create failed", err)
		return
	}

	h.Log.Info("invite link generated",
		zap.String("project_id", projectID.Hex()),
		zap.String("invite_id", l.PublicID),
	)
	writeJSON(w, http.StatusCreated, toInviteResponse(l))
}

// HandleList returns the project's invite links, disabled ones included.
// GET /projects/{projectID}/invites
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, projectID, err := h.authorize(ctx, r, projectpolicy.ActionGenerateInvite)
	if err != nil {
		h.writeError(w, r, "invites: list authorize failed", err)
		return
	}

	list, err := h.Invites.ListByProject(ctx, projectID)
	if err != nil {
		h.writeError(w, r, "invites: list failed", err)
		return
	}
	out := make([]inviteResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toInviteResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDisable deactivates a link. The token stays on record but no
// longer resolves.
// DELETE /projects/{projectID}/invites/{inviteID}
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, projectID, err := h.authorize(ctx, r, projectpolicy.ActionGenerateInvite)
	if err != nil {
		h.writeError(w, r, "invites: disable authorize failed", err)
		return
	}

	if err := h.Invites.Disable(ctx, projectID, chi.URLParam(r, "inviteID")); err != nil {
		h.writeError(w, r, "invites: disable failed", err)
		return
	}

	h.Log.Info("invite link disabled",
		zap.String("project_id", projectID.Hex()),
		zap.String("invite_id", chi.URLParam(r, "inviteID")),
	)
	w.WriteHeader(http.StatusNoContent)
}

type resolveResponse struct {
	ProjectID          string `json:"project_id"`
	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	Inviter            string `json:"inviter"`
}

// HandleResolve maps a token to a summary of the project it would join:
// name, description, and who minted the link.
// GET /invites/{token}
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, p, err := h.resolveToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, "invites: resolve failed", err)
		return
	}

	// An inviter whose account has since been deleted leaves the field
	// empty rather than failing the whole resolve.
	inviter := ""
	if u, err := h.Users.FindByID(ctx, l.CreatedBy); err == nil {
		inviter = u.FullName
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		ProjectID:          p.ID.Hex(),
		ProjectName:        p.Name,
		ProjectDescription: p.Description,
		Inviter:            inviter,
	})
}

// HandleAccept joins the caller to the link's project with the default
// role. Existing members get a conflict.
// POST /invites/{token}/accept
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		apierrors.WriteFault(w, faults.Forbidden("sign-in required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	_, p, err := h.resolveToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, "invites: resolve failed", err)
		return
	}

	m, err := h.Memberships.Add(ctx, p.ID, userID, roles.Default)
	if err != nil {
		h.writeError(w, r, "invites: join failed", err)
		return
	}

	h.Log.Info("member joined via invite link",
		zap.String("project_id", p.ID.Hex()),
		zap.String("user_id", userID.Hex()),
	)
	writeJSON(w, http.StatusCreated, map[string]string{
		"project_id":    p.ID.Hex(),
		"membership_id": m.ID.Hex(),
		"role":          string(m.Role),
	})
}

// resolveToken finds an active link and its project. A disabled link, a
// missing project, or a project with join-by-link switched off all
// surface as the same not-found fault so tokens leak nothing.
func (h *Handler) resolveToken(ctx context.Context, token string) (models.InviteLink, models.Project, error) {
	l, err := h.Invites.FindActiveByToken(ctx, token)
	if err != nil {
		return models.InviteLink{}, models.Project{}, err
	}
	p, err := h.Projects.GetByID(ctx, l.ProjectID)
	if err != nil {
		if faults.Code(err) == "not_found" {
			return models.InviteLink{}, models.Project{}, faults.NotFound("Invalid or disabled invite link")
		}
		return models.InviteLink{}, models.Project{}, err
	}
	if !p.Settings.JoinByLinkEnabled {
		return models.InviteLink{}, models.Project{}, faults.NotFound("Invalid or disabled invite link")
	}
	return l, p, nil
}

// authorize checks the caller's capability for action on the project in
// the URL and returns both ids.
func (h *Handler) authorize(ctx context.Context, r *http.Request, action projectpolicy.Action) (primitive.ObjectID, primitive.ObjectID, error) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, faults.Forbidden("sign-in required")
	}
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, faults.NotFound("project not found")
	}
	members, err := h.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	if d := projectpolicy.Decide(userID, members, action, nil); !d.Allowed {
		return primitive.NilObjectID, primitive.NilObjectID, faults.Forbidden(d.Reason)
	}
	return userID, projectID, nil
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
