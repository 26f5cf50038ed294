// Package login provides the account endpoints: register, login,
// logout, and the current-user probe.
package login

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/dalemusser/taskhub/internal/app/features/errors"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/ratelimit"
	"github.com/dalemusser/taskhub/internal/domain/faults"
	"github.com/dalemusser/taskhub/internal/domain/models"
)

// loginAttempts caps credential guesses per client IP.
const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

type Handler struct {
	Users    *userstore.Store
	Sessions *auth.SessionManager
	Limiter  *ratelimit.Limiter
	Log      *zap.Logger
	ErrLog   *apierrors.ErrorLogger
}

func NewHandler(users *userstore.Store, sessions *auth.SessionManager, logger *zap.Logger, errLog *apierrors.ErrorLogger) *Handler {
	return &Handler{
		Users:    users,
		Sessions: sessions,
		Limiter:  ratelimit.New(loginAttempts, loginWindow),
		Log:      logger,
		ErrLog:   errLog,
	}
}

type credentials struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID.Hex(), FullName: u.FullName, Email: u.Email}
}

// HandleRegister creates an account and signs the new user in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	u, err := h.Users.Create(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		if faults.Code(err) == "" {
			h.ErrLog.ServerError(w, r, "register: create user failed", err)
			return
		}
		apierrors.WriteFault(w, err)
		return
	}

	if err := h.signIn(w, r, u); err != nil {
		h.ErrLog.ServerError(w, r, "register: session sign-in failed", err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleLogin verifies credentials and establishes a session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "invalid JSON body")
		return
	}

	ip := ratelimit.ClientIP(r)
	if !h.Limiter.Allow(ip) {
		h.Log.Warn("login rate limited", zap.String("ip", ip))
		http.Error(w, "too many login attempts, try again later", http.StatusTooManyRequests)
		return
	}

	u, err := h.Users.FindByEmail(r.Context(), req.Email)
	if err != nil || !userstore.VerifyPassword(u, req.Password) {
		// Same body for unknown email and wrong password.
		apierrors.WriteFault(w, faults.Forbidden("invalid email or password"))
		return
	}

	h.Limiter.Reset(ip)
	if err := h.signIn(w, r, u); err != nil {
		h.ErrLog.ServerError(w, r, "login: session sign-in failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleLogout clears the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.ErrLog.ServerError(w, r, "logout: session sign-out failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the signed-in user, resolved fresh from the store so
// a renamed account shows its current name.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.WriteFault(w, faults.Forbidden("sign-in required"))
		return
	}
	u, err := h.Users.FindByEmail(r.Context(), su.Email)
	if err != nil {
		apierrors.WriteFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	return h.Sessions.SignIn(w, r, &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
