// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	errorsfeature "github.com/dalemusser/taskhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/taskhub/internal/app/features/health"
	invitesfeature "github.com/dalemusser/taskhub/internal/app/features/invites"
	loginfeature "github.com/dalemusser/taskhub/internal/app/features/login"
	membersfeature "github.com/dalemusser/taskhub/internal/app/features/members"
	projectsfeature "github.com/dalemusser/taskhub/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/taskhub/internal/app/features/tasks"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/limits"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, and schema setup
// have completed. TaskHub mounts a JSON API: auth and invite-token
// endpoints are public, everything under /projects requires a session.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	db := deps.MongoDatabase

	r := chi.NewRouter()

	// Cap request bodies before any decoding happens.
	r.Use(limits.JSONBody)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Account endpoints; register and login are reachable without a session.
	loginHandler := loginfeature.NewHandler(userstore.New(db), sessionMgr, logger, errLog)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	projectsHandler := projectsfeature.NewHandler(db, logger, errLog)
	membersHandler := membersfeature.NewHandler(db, logger, errLog)
	tasksHandler := tasksfeature.NewHandler(db, logger, errLog)
	invitesHandler := invitesfeature.NewHandler(db, logger, errLog)

	// Token resolution is a display-only read for prospective members who
	// may not have an account yet; accept checks for a session itself.
	r.Mount("/invites", invitesfeature.PublicRoutes(invitesHandler))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		r.Mount("/projects", projectsfeature.Routes(
			projectsHandler,
			membersfeature.Routes(membersHandler),
			tasksfeature.Routes(tasksHandler),
			invitesfeature.ProjectRoutes(invitesHandler),
		))
	})

	return r, nil
}
