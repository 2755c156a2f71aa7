// Package httpapi exposes the user and authentication operations over a
// JSON REST API. Every route is registered together with its access
// requirement, and the guard runs before the handler.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filmkeeper/internal/logging"
	"github.com/dmitrijs2005/filmkeeper/internal/server/guard"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"github.com/dmitrijs2005/filmkeeper/internal/server/services"
)

// gracefulShutdownTimeout bounds how long Run waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// UserService is satisfied by *services.UserService.
type UserService interface {
	SignIn(ctx context.Context, email, password string) (*services.AccessToken, error)
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	ChangeRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}

// Deps holds the dependencies of the HTTP server.
type Deps struct {
	Address string
	Users   UserService
	Guard   *guard.Guard
	Logger  logging.Logger
	// Health is called by /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	address string
	users   UserService
	guard   *guard.Guard
	policy  *guard.Policy
	logger  logging.Logger
	health  func(ctx context.Context) error
	handler http.Handler
}

// New builds the server and its router. Routes are added to the guard's
// policy here, so New must run before any request is served.
func New(deps Deps) (*Server, error) {
	if deps.Users == nil {
		return nil, errors.New("user service is required")
	}
	if deps.Guard == nil {
		return nil, errors.New("guard is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}

	s := &Server{
		address: deps.Address,
		users:   deps.Users,
		guard:   deps.Guard,
		policy:  deps.Guard.Policy(),
		logger:  deps.Logger.With("module", "http_server"),
		health:  deps.Health,
	}
	s.handler = s.buildRouter()

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listen)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}
