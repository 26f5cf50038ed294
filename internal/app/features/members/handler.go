// Package members manages a project's roster: listing, direct adds,
// role changes, removals, and self-service leave. The last-administrator
// rule is enforced by the membership store inside its transactions; this
// layer only decides whether the caller may ask.
package members

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
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/domain/roles"
)

type Handler struct {
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Log         *zap.Logger
	ErrLog      *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, logger *zap.Logger, errLog *apierrors.ErrorLogger) *Handler {
	return &Handler{
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
	}
}

type memberResponse struct {
	MembershipID string     `json:"membership_id"`
	UserID       string     `json:"user_id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Role         roles.Role `json:"role"`
}

// HandleList returns the roster with user names resolved.
// GET /projects/{projectID}/members
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.authorize(ctx, r, projectpolicy.ActionViewProject)
	if err != nil {
		h.writeError(w, r, "members: list authorize failed", err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		h.writeError(w, r, "members: resolve users failed", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		u := byID[m.UserID]
		out = append(out, memberResponse{
			MembershipID: m.ID.Hex(),
			UserID:       m.UserID.Hex(),
			FullName:     u.FullName,
			Email:        u.Email,
			Role:         m.Role,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleAdd adds an existing account to the project by email.
// POST /projects/{projectID}/members
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	role := roles.Default
	if req.Role != "" {
		var err error
		if role, err = roles.Parse(req.Role); err != nil {
			h.writeError(w, r, "members: parse role failed", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.authorize(ctx, r, projectpolicy.ActionManageMembers); err != nil {
		h.writeError(w, r, "members: add authorize failed", err)
		return
	}
	projectID, _ := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		h.writeError(w, r, "members: find user failed", err)
		return
	}

	m, err := h.Memberships.Add(ctx, projectID, u.ID, role)
	if err != nil {
		h.writeError(w, r, "members: add failed", err)
		return
	}

	h.Log.Info("member added",
		zap.String("project_id", projectID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", string(role)),
	)
	writeJSON(w, http.StatusCreated, memberResponse{
		MembershipID: m.ID.Hex(),
		UserID:       u.ID.Hex(),
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         m.Role,
	})
}

type roleRequest struct {
	Role string `json:"role"`
}

// HandleSetRole changes a member's role. Demoting the only administrator
// is refused by the store with a last_administrator fault.
// PUT /projects/{projectID}/members/{membershipID}/role
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}
	role, err := roles.Parse(req.Role)
	if err != nil {
		h.writeError(w, r, "members: parse role failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.authorize(ctx, r, projectpolicy.ActionAssignRole); err != nil {
		h.writeError(w, r, "members: set-role authorize failed", err)
		return
	}
	projectID, _ := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))

	membershipID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "membershipID"))
	if err != nil {
		apierrors.WriteFault(w, faults.NotFound("membership not found"))
		return
	}

	if err := h.Memberships.SetRole(ctx, projectID, membershipID, role); err != nil {
		h.writeError(w, r, "members: set role failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove removes a member from the project. Removing the only
// administrator is refused by the store.
// DELETE /projects/{projectID}/members/{membershipID}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.authorize(ctx, r, projectpolicy.ActionManageMembers); err != nil {
		h.writeError(w, r, "members: remove authorize failed", err)
		return
	}
	projectID, _ := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))

	membershipID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "membershipID"))
	if err != nil {
		apierrors.WriteFault(w, faults.NotFound("membership not found"))
		return
	}

	if err := h.Memberships.Remove(ctx, projectID, membershipID); err != nil {
		h.writeError(w, r, "members: remove failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeave lets the caller exit the project. The sole administrator
// cannot leave; the store refuses with a last_administrator fault.
// POST /projects/{projectID}/members/leave
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		apierrors.WriteFault(w, faults.Forbidden("sign-in required"))
		return
	}
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		apierrors.WriteFault(w, faults.NotFound("project not found"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Memberships.Leave(ctx, projectID, userID); err != nil {
		h.writeError(w, r, "members: leave failed", err)
		return
	}

	h.Log.Info("member left project",
		zap.String("project_id", projectID.Hex()),
		zap.String("user_id", userID.Hex()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// authorize loads the roster and checks the caller's capability for
// action. The roster is returned for handlers that render it.
func (h *Handler) authorize(ctx context.Context, r *http.Request, action projectpolicy.Action) ([]models.Membership, error) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		return nil, faults.Forbidden("sign-in required")
	}
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		return nil, faults.NotFound("project not found")
	}

	members, err := h.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if d := projectpolicy.Decide(userID, members, action, nil); !d.Allowed {
		return nil, faults.Forbidden(d.Reason)
	}
	return members, nil
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
