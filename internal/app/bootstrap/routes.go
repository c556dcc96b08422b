// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dashboardfeature "github.com/atelieropen/obratrack/internal/app/features/dashboard"
	healthfeature "github.com/atelieropen/obratrack/internal/app/features/health"
	loginfeature "github.com/atelieropen/obratrack/internal/app/features/login"
	logoutfeature "github.com/atelieropen/obratrack/internal/app/features/logout"
	notesfeature "github.com/atelieropen/obratrack/internal/app/features/notes"
	projectsfeature "github.com/atelieropen/obratrack/internal/app/features/projects"
	usersfeature "github.com/atelieropen/obratrack/internal/app/features/users"
	notestore "github.com/atelieropen/obratrack/internal/app/store/notes"
	projectstore "github.com/atelieropen/obratrack/internal/app/store/projects"
	userstore "github.com/atelieropen/obratrack/internal/app/store/users"
	"github.com/atelieropen/obratrack/internal/app/system/auth"
	"github.com/atelieropen/obratrack/internal/app/system/mailer"
	"github.com/atelieropen/obratrack/internal/app/system/notifier"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE
// app. WAFFLE calls this after configuration, DB connections, schema
// setup, and Startup have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request: role changes and deactivation take
	// effect immediately instead of at next sign-in.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	users := userstore.New(deps.MongoDatabase)
	projects := projectstore.New(deps.MongoDatabase)
	notes := notestore.New(deps.MongoDatabase)

	mail := mailer.New(appCfg.MailSMTPHost, appCfg.MailSMTPPort,
		appCfg.MailSMTPUser, appCfg.MailSMTPPass,
		appCfg.MailFrom, appCfg.MailFromName, logger)
	notify := notifier.New(appCfg.NotifyEndpoint, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	loginHandler := loginfeature.NewHandler(users, sessionMgr, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	dashboardHandler := dashboardfeature.NewHandler(projects, users, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

	projectsHandler := projectsfeature.NewHandler(projects, notes, users, notify, logger)
	r.Mount("/projects", projectsfeature.Routes(projectsHandler))

	notesHandler := notesfeature.NewHandler(notes, projects, logger)
	r.Mount("/projects/{projectID}/notes", notesfeature.Routes(notesHandler))

	usersHandler := usersfeature.NewHandler(users, mail, appCfg.SiteName, appCfg.BaseURL+"/login", logger)
	r.Mount("/users", usersfeature.Routes(usersHandler))

	return r, nil
}
