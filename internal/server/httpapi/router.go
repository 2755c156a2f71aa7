package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/filmkeeper/internal/server/guard"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const apiPrefix = "/api/v1"

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	s.route(r, "", http.MethodGet, "/healthz", guard.Public(), s.handleHealth)

	r.Route(apiPrefix, func(r chi.Router) {
		s.route(r, apiPrefix, http.MethodPost, "/auth/login", guard.Public(), s.handleLogin)
		s.route(r, apiPrefix, http.MethodPost, "/auth/register", guard.Public(), s.handleRegister)

		s.route(r, apiPrefix, http.MethodGet, "/users/me", guard.Authenticated(), s.handleMe)
		s.route(r, apiPrefix, http.MethodGet, "/users", guard.Roles(models.RoleAdmin), s.handleListUsers)
		s.route(r, apiPrefix, http.MethodPatch, "/users/{id}/role", guard.Roles(models.RoleAdmin), s.handleChangeRole)
	})

	return r
}

// route registers h and records its requirement in the policy under the
// operation name "METHOD /full/pattern".
func (s *Server) route(r chi.Router, prefix, method, pattern string, req guard.Requirement, h http.HandlerFunc) {
	op := OperationName(method, prefix+pattern)
	s.policy.Set(op, req)
	r.With(s.guardMiddleware(op)).Method(method, pattern, h)
}

// OperationName is the policy key of an HTTP route.
func OperationName(method, pattern string) string {
	return method + " " + pattern
}
