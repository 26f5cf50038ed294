// Package tasks provides the task lifecycle endpoints: create, list,
// edit, progress changes, assignment, and deletion. Authorization goes
// through taskpolicy with the project's resolved roster.
package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	apierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	"github.com/dalemusser/taskhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/taskhub/internal/app/policy/taskpolicy"
	membershipstore "github.com/dalemusser/taskhub/internal/app/store/memberships"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/paging"
	"github.com/dalemusser/taskhub/internal/app/system/timeouts"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
)

type Handler struct {
	Tasks       *taskstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
	ErrLog      *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, logger *zap.Logger, errLog *apierrors.ErrorLogger) *Handler {
	return &Handler{
		Tasks:       taskstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
	}
}

type historyEntry struct {
	Progress  models.Progress `json:"progress"`
	UpdatedBy string          `json:"updated_by"`
	Timestamp time.Time       `json:"timestamp"`
}

type taskResponse struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Deadline    string          `json:"deadline"`
	CreatorID   string          `json:"creator_id"`
	AssigneeID  string          `json:"assignee_id,omitempty"`
	Progress    models.Progress `json:"progress"`
	History     []historyEntry  `json:"progress_history"`
}

func toTaskResponse(t models.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID.Hex(),
		ProjectID:   t.ProjectID.Hex(),
		Name:        t.Name,
		Description: t.Description,
		Deadline:    t.Deadline.Format(taskpolicy.DeadlineLayout),
		CreatorID:   t.CreatorID.Hex(),
		Progress:    t.Progress,
		History:     make([]historyEntry, 0, len(t.History)),
	}
	if t.AssigneeID != nil {
		resp.AssigneeID = t.AssigneeID.Hex()
	}
	for _, e := range t.History {
		resp.History = append(resp.History, historyEntry{
			Progress:  e.Progress,
			UpdatedBy: e.UpdatedBy.Hex(),
			Timestamp: e.Timestamp,
		})
	}
	return resp
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

// HandleCreate adds a task to the project with progress "To Do" and the
// first history entry.
// POST /projects/{projectID}/tasks
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, projectID, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	if err := taskpolicy.AuthorizeCreate(userID, members); err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	deadline, err := taskpolicy.ValidateCreate(taskpolicy.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
	}, time.Now())
	if err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	t, err := h.Tasks.Create(ctx, projectID, req.Name, htmlsanitize.Sanitize(req.Description), deadline, userID)
	if err != nil {
		h.writeError(w, r, "tasks: create failed", err)
		return
	}

	h.Log.Info("task created",
		zap.String("task_id", t.ID.Hex()),
		zap.String("project_id", projectID.Hex()),
		zap.String("creator_id", userID.Hex()),
	)
	writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

type listResponse struct {
	Tasks      []taskResponse `json:"tasks"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
	PrevCursor string         `json:"prev_cursor,omitempty"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// HandleList returns one page of the project's tasks ordered by name.
// "after" and "before" carry the cursors from a previous page.
// GET /projects/{projectID}/tasks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, projectID, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	if d := projectpolicy.Decide(userID, members, projectpolicy.ActionViewProject, nil); !d.Allowed {
		apierrors.WriteFault(w, faults.Forbidden(d.Reason))
		return
	}

	after := query.Get(r, "after")
	before := query.Get(r, "before")

	list, page, err := h.Tasks.ListPage(ctx, projectID, before, after)
	if err != nil {
		h.writeError(w, r, "tasks: list failed", err)
		return
	}

	resp := listResponse{
		Tasks:   make([]taskResponse, 0, len(list)),
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
	}
	for _, t := range list {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}
	resp.PrevCursor, resp.NextCursor = paging.BuildCursors(list,
		func(t models.Task) string { return t.NameCI },
		func(t models.Task) primitive.ObjectID { return t.ID },
	)
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet returns one task.
// GET /projects/{projectID}/tasks/{taskID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, _, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	if d := projectpolicy.Decide(userID, members, projectpolicy.ActionViewProject, nil); !d.Allowed {
		apierrors.WriteFault(w, faults.Forbidden(d.Reason))
		return
	}

	t, err := h.loadTask(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: load failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

type updateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Deadline    *string          `json:"deadline"`
	Progress    *models.Progress `json:"progress"`
}

// HandleUpdate edits task fields. A progress value in the patch is
// recorded in the history like a dedicated progress change.
// PATCH /projects/{projectID}/tasks/{taskID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, _, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	t, err := h.loadTask(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: load failed", err)
		return
	}
	if err := taskpolicy.AuthorizeUpdate(userID, members, t); err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	patch := taskpolicy.UpdatePatch{
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
		Progress:    req.Progress,
	}
	deadline, err := taskpolicy.ValidatePatch(patch, time.Now())
	if err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	fields := taskstore.Fields{Name: req.Name, Deadline: deadline}
	if req.Description != nil {
		clean := htmlsanitize.Sanitize(*req.Description)
		fields.Description = &clean
	}
	if fields.Name != nil || fields.Description != nil || fields.Deadline != nil {
		if err := h.Tasks.Update(ctx, t.ID, fields); err != nil {
			h.writeError(w, r, "tasks: update failed", err)
			return
		}
	}
	if req.Progress != nil && *req.Progress != t.Progress {
		entry := taskpolicy.NewHistoryEntry(*req.Progress, userID, time.Now())
		if err := h.Tasks.AppendProgress(ctx, t.ID, entry); err != nil {
			h.writeError(w, r, "tasks: progress append failed", err)
			return
		}
	}

	updated, err := h.Tasks.GetByID(ctx, t.ID)
	if err != nil {
		h.writeError(w, r, "tasks: reload after update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

type progressRequest struct {
	Progress models.Progress `json:"progress"`
}

// HandleProgress moves the task between lifecycle states and appends to
// the history. Administrators, the task's creator, and its assignee may
// call this.
// POST /projects/{projectID}/tasks/{taskID}/progress
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}
	if err := taskpolicy.ValidateProgress(req.Progress); err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, _, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	t, err := h.loadTask(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: load failed", err)
		return
	}
	if err := taskpolicy.AuthorizeProgress(userID, members, t); err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	entry := taskpolicy.NewHistoryEntry(req.Progress, userID, time.Now())
	if err := h.Tasks.AppendProgress(ctx, t.ID, entry); err != nil {
		h.writeError(w, r, "tasks: progress append failed", err)
		return
	}

	updated, err := h.Tasks.GetByID(ctx, t.ID)
	if err != nil {
		h.writeError(w, r, "tasks: reload after progress failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

type assignRequest struct {
	MembershipID string `json:"membership_id"`
}

// HandleAssign points the task at a member of the project. Only
// administrators may assign, and the target must be on the roster.
// PUT /projects/{projectID}/tasks/{taskID}/assignee
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}
	membershipID, err := primitive.ObjectIDFromHex(req.MembershipID)
	if err != nil {
		apierrors.WriteFault(w, faults.Validation("membership_id", "membership_id must be a valid id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, _, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	if err := taskpolicy.AuthorizeAssign(userID, members); err != nil {
		apierrors.WriteFault(w, err)
		return
	}
	assignee, err := taskpolicy.ResolveAssignee(members, membershipID)
	if err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	t, err := h.loadTask(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: load failed", err)
		return
	}
	if err := h.Tasks.SetAssignee(ctx, t.ID, assignee.UserID); err != nil {
		h.writeError(w, r, "tasks: set assignee failed", err)
		return
	}

	h.Log.Info("task assigned",
		zap.String("task_id", t.ID.Hex()),
		zap.String("assignee_id", assignee.UserID.Hex()),
	)
	updated, err := h.Tasks.GetByID(ctx, t.ID)
	if err != nil {
		h.writeError(w, r, "tasks: reload after assign failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// HandleDelete removes the task from the project list and deletes its
// document; both happen in one transaction.
// DELETE /projects/{projectID}/tasks/{taskID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, projectID, members, err := h.resolve(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: resolve project failed", err)
		return
	}
	t, err := h.loadTask(ctx, r)
	if err != nil {
		h.writeError(w, r, "tasks: load failed", err)
		return
	}
	if err := taskpolicy.AuthorizeDelete(userID, members, t); err != nil {
		apierrors.WriteFault(w, err)
		return
	}

	if err := h.Tasks.Delete(ctx, projectID, t.ID); err != nil {
		h.writeError(w, r, "tasks: delete failed", err)
		return
	}

	h.Log.Info("task deleted",
		zap.String("task_id", t.ID.Hex()),
		zap.String("project_id", projectID.Hex()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// resolve extracts the caller and project from the request and loads the
// roster. Handlers run their own policy checks on the result.
func (h *Handler) resolve(ctx context.Context, r *http.Request) (primitive.ObjectID, primitive.ObjectID, []models.Membership, error) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, primitive.NilObjectID, nil, faults.Forbidden("sign-in required")
	}
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, nil, faults.NotFound("project not found")
	}
	members, err := h.Memberships.ListByProject(ctx, projectID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, nil, err
	}
	return userID, projectID, members, nil
}

// loadTask fetches the task from the URL and checks it belongs to the
// project in the URL; a mismatch reads as not found.
func (h *Handler) loadTask(ctx context.Context, r *http.Request) (models.Task, error) {
	projectID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		return models.Task{}, faults.NotFound("project not found")
	}
	taskID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "taskID"))
	if err != nil {
		return models.Task{}, faults.NotFound("task not found")
	}
	t, err := h.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if t.ProjectID != projectID {
		return models.Task{}, faults.NotFound("task not found")
	}
	return t, nil
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
