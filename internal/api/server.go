// Package api exposes internal/ops over HTTP: a thin chi router, one
// handler file per resource kind, and a bearer-token auth middleware
// that resolves the Authorization header into an authz.Context. The
// wire framing here is an external collaborator, not the hard part of
// this system (that's C1-C10); grounded on erauner12-toolbridge-api and
// aras-group-co-aras-auth, the pack's two chi+bearer-token multi-tenant
// REST APIs.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/flowmesh/controlplane/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server holds the dependencies every handler needs.
type Server struct {
	Ops   *ops.Dispatcher
	Store store.Store
	Log   *slog.Logger
}

func NewServer(d *ops.Dispatcher, st store.Store, log *slog.Logger) *Server {
	return &Server{Ops: d, Store: st, Log: log}
}

// Router builds the full route tree. Every resource route lives behind
// s.authenticate except /healthz and /api/v1/auth/sessions, which mints
// the very credential authenticate would otherwise require.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/sessions", s.handleCreateSession)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/admin/organizations", func(r chi.Router) {
				r.Get("/", s.handleListOrgs)
				r.Post("/", s.handleCreateOrg)
				r.Get("/{orgID}", s.handleGetOrg)
				r.Delete("/{orgID}", s.handleDeleteOrg)

				r.Route("/{orgID}/teams", func(r chi.Router) {
					r.Get("/", s.handleListTeams)
					r.Post("/", s.handleCreateTeam)
					r.Get("/{teamID}", s.handleGetTeam)
					r.Delete("/{teamID}", s.handleDeleteTeam)
				})
			})

			r.Route("/clusters", func(r chi.Router) {
				r.Get("/", s.handleListClusters)
				r.Post("/", s.handleCreateCluster)
				r.Get("/{id}", s.handleGetCluster)
				r.Put("/{id}", s.handleUpdateCluster)
				r.Delete("/{id}", s.handleDeleteCluster)
			})

			r.Route("/routes", func(r chi.Router) {
				r.Get("/", s.handleListRouteConfigs)
				r.Post("/", s.handleCreateRouteConfig)
				r.Get("/{id}", s.handleGetRouteConfig)
				r.Put("/{id}", s.handleUpdateRouteConfig)
				r.Delete("/{id}", s.handleDeleteRouteConfig)
			})

			r.Route("/listeners", func(r chi.Router) {
				r.Get("/", s.handleListListeners)
				r.Post("/", s.handleCreateListener)
				r.Get("/{id}", s.handleGetListener)
				r.Put("/{id}", s.handleUpdateListener)
				r.Delete("/{id}", s.handleDeleteListener)
			})

			r.Route("/filters", func(r chi.Router) {
				r.Get("/", s.handleListFilters)
				r.Post("/", s.handleCreateFilter)
				r.Get("/{id}", s.handleGetFilter)
				r.Put("/{id}", s.handleUpdateFilter)
				r.Delete("/{id}", s.handleDeleteFilter)
			})

			r.Route("/attachments", func(r chi.Router) {
				r.Get("/", s.handleListAttachments)
				r.Post("/", s.handleAttachFilter)
				r.Delete("/", s.handleDetachFilter)
			})

			r.Route("/learning-sessions", func(r chi.Router) {
				r.Get("/", s.handleListLearningSessions)
				r.Post("/", s.handleCreateLearningSession)
				r.Get("/{id}", s.handleGetLearningSession)
				r.Post("/{id}/activate", s.handleActivateLearningSession)
				r.Post("/{id}/cancel", s.handleCancelLearningSession)
			})

			r.Route("/aggregated-schemas", func(r chi.Router) {
				r.Get("/", s.handleListAggregatedSchemas)
				r.Get("/{team}/{method}/*", s.handleGetAggregatedSchema)
			})

			r.Route("/tokens", func(r chi.Router) {
				r.Post("/", s.handleCreateToken)
				r.Get("/", s.handleListTokens)
				r.Delete("/{id}", s.handleRevokeToken)
			})
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Info("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}
