package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth            *mw.Auth
	APIRateLimit    *mw.RateLimit
	IngestRateLimit *mw.RateLimit
	CORSOrigins     []string
	MaxBodyBytes    int64

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	SignupHandler       http.HandlerFunc
	LoginHandler        http.HandlerFunc
	LogoutHandler       http.HandlerFunc
	RefreshTokenHandler http.HandlerFunc
	ResetRequestHandler http.HandlerFunc
	ResetConfirmHandler http.HandlerFunc
	GetOrgProfile       http.HandlerFunc
	UpdateOrgProfile    http.HandlerFunc
	AddMemberHandler    http.HandlerFunc
	ListMembersHandler  http.HandlerFunc
	UpdateMemberHandler http.HandlerFunc
	RemoveMemberHandler http.HandlerFunc
	CreateKeyHandler    http.HandlerFunc
	ListKeysHandler     http.HandlerFunc
	RevokeKeyHandler    http.HandlerFunc
	CreateAgentHandler  http.HandlerFunc
	ListAgentsHandler   http.HandlerFunc
	GetAgentHandler     http.HandlerFunc
	UpdateAgentHandler  http.HandlerFunc
	ArchiveAgentHandler http.HandlerFunc
	ListRunsHandler     http.HandlerFunc
	GetRunHandler       http.HandlerFunc
	ListEventsHandler   http.HandlerFunc
	IngestRunHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", mw.OrgHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	if deps.MaxBodyBytes > 0 {
		r.Use(mw.MaxBodySize(deps.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.CodeInvalidRequest, "Method not allowed", nil)
	})

	// Public
	r.Get("/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Per client IP, ahead of API key auth.
		if deps.APIRateLimit != nil {
			r.Use(deps.APIRateLimit.Limit)
		}

		// Dashboard routes
		r.Group(func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", orNotImplemented(deps.SignupHandler))
				r.Post("/login", orNotImplemented(deps.LoginHandler))
				r.Post("/logout", orNotImplemented(deps.LogoutHandler))
				r.Post("/refresh-token", orNotImplemented(deps.RefreshTokenHandler))
				r.Post("/password-reset/request", orNotImplemented(deps.ResetRequestHandler))
				r.Post("/password-reset/confirm", orNotImplemented(deps.ResetConfirmHandler))
			})

			// Org-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(mw.OrgContext)

				r.Get("/orgs/profile", orNotImplemented(deps.GetOrgProfile))
				r.Patch("/orgs/profile", orNotImplemented(deps.UpdateOrgProfile))

				r.Post("/org-members", orNotImplemented(deps.AddMemberHandler))
				r.Get("/org-members", orNotImplemented(deps.ListMembersHandler))
				r.Patch("/org-members/{memberID}", orNotImplemented(deps.UpdateMemberHandler))
				r.Delete("/org-members/{memberID}", orNotImplemented(deps.RemoveMemberHandler))

				r.Post("/api-keys", orNotImplemented(deps.CreateKeyHandler))
				r.Get("/api-keys", orNotImplemented(deps.ListKeysHandler))
				r.Delete("/api-keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))

				r.Post("/agents", orNotImplemented(deps.CreateAgentHandler))
				r.Get("/agents", orNotImplemented(deps.ListAgentsHandler))
				r.Get("/agents/{agentID}", orNotImplemented(deps.GetAgentHandler))
				r.Patch("/agents/{agentID}", orNotImplemented(deps.UpdateAgentHandler))
				r.Delete("/agents/{agentID}", orNotImplemented(deps.ArchiveAgentHandler))

				r.Get("/runs", orNotImplemented(deps.ListRunsHandler))
				r.Get("/runs/{runID}", orNotImplemented(deps.GetRunHandler))
				r.Get("/events/{runID}", orNotImplemented(deps.ListEventsHandler))
			})
		})

		// Ingestion, authenticated by API key
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)
			r.Use(deps.Auth.RequireScope("ingest"))
			if deps.IngestRateLimit != nil {
				r.Use(deps.IngestRateLimit.Limit)
			}

			r.Post("/ingest/run", orNotImplemented(deps.IngestRunHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
