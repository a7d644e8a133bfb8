package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thunderdz19/sero-est/internal/middleware"
	"go.uber.org/zap"
)

// Login attempts allowed per client IP and window.
const (
	LoginRateLimit  = 10
	LoginRateWindow = time.Minute
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth    *AuthHandler
	Reports *ReportHandler
	Catalog *CatalogHandler
	Admin   *AdminHandler
}

// NewRouter constructs the HTTP handler that serves the SERO-EST API.
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. CORS for the configured origins
//  3. WithRequestLogging(logger), which also feeds the latency histogram
//
// /health and /metrics are public; under /api only POST /login is reachable
// without a bearer token, and it is rate limited per client IP. Every other
// /api route goes through BearerAuth(authn). Role checks stay in the
// services so a forbidden call answers 403 whatever the route.
func NewRouter(h Handlers, authn middleware.Authenticator, origins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(
			httprate.LimitByIP(LoginRateLimit, LoginRateWindow),
			chiMiddleware.AllowContentType("application/json"),
		).Post("/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(authn))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)

			r.Get("/tasks", h.Catalog.Tasks)
			r.Get("/dashboard", h.Reports.Dashboard)
			r.Get("/logs", h.Admin.Logs)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.Catalog.Projects)
				r.Post("/", h.Admin.CreateProject)
				r.Get("/{id}", h.Catalog.Project)
				r.Patch("/{id}", h.Admin.UpdateProject)
				r.Delete("/{id}", h.Admin.DeleteProject)
				r.Post("/{id}/files", h.Admin.AddDriveFile)
				r.Delete("/{id}/files/{fileId}", h.Admin.RemoveDriveFile)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.Reports.List)
				r.Post("/", h.Reports.Submit)
				r.Get("/export", h.Reports.Export)
				r.Get("/mine", h.Reports.Mine)
				r.Get("/mine/recent", h.Reports.MineRecent)
				r.Get("/mine/summary", h.Reports.MineSummary)
				r.Get("/mine/export", h.Reports.MineExport)
				r.Patch("/{id}/status", h.Reports.UpdateStatus)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.Admin.ListUsers)
				r.Post("/", h.Admin.CreateUser)
				r.Patch("/{id}", h.Admin.UpdateUser)
				r.Delete("/{id}", h.Admin.DeleteUser)
			})

			r.Route("/stations", func(r chi.Router) {
				r.Get("/", h.Catalog.Stations)
				r.Post("/", h.Admin.CreateStation)
				r.Patch("/{id}", h.Admin.UpdateStation)
				r.Delete("/{id}", h.Admin.DeleteStation)
			})

			r.Route("/phases", func(r chi.Router) {
				r.Get("/", h.Catalog.Phases)
				r.Post("/", h.Admin.CreatePhase)
				r.Post("/reset", h.Admin.ResetPhases)
				r.Post("/restore", h.Admin.RestorePhases)
				r.Patch("/{id}", h.Admin.UpdatePhase)
				r.Delete("/{id}", h.Admin.DeletePhase)
			})

			r.Get("/backup", h.Admin.ExportBackup)
			r.Post("/backup", h.Admin.ImportBackup)
		})
	})

	return r
}
