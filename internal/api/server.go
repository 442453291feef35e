package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/todo-core/internal/audit"
	"github.com/nerrad567/todo-core/internal/auth"
	"github.com/nerrad567/todo-core/internal/infrastructure/config"
	"github.com/nerrad567/todo-core/internal/infrastructure/logging"
	"github.com/nerrad567/todo-core/internal/todo"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Users    auth.UserRepository
	Tasks    todo.Repository
	DB       *sql.DB          // optional, pool stats for /metrics
	Events   EventPublisher   // optional, nil disables task events
	Audit    audit.Repository // optional, nil disables the activity trail
	Version  string
}

// serverTimeouts are the http.Server timeouts resolved from config.
type serverTimeouts struct {
	read, write, idle time.Duration
}

// Server is the HTTP API server for Todo Core.
//
// It is created with New, started with Start and stopped with Close.
// All handler state is read-only after New, so requests run concurrently.
type Server struct {
	cfg       config.APIConfig
	timeouts  serverTimeouts
	logger    *logging.Logger
	users     auth.UserRepository
	tasks     todo.Repository
	db        *sql.DB
	events    EventPublisher
	audit     audit.Repository
	hasher    auth.Hasher
	jwtSecret string
	tokenTTL  time.Duration
	version   string
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Config with a JWT secret, Logger, and user and task repositories are required
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Tasks == nil {
		return nil, fmt.Errorf("task repository is required")
	}
	if deps.Config.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	timeouts := serverTimeouts{
		read:  deps.Config.GetReadTimeout(),
		write: deps.Config.GetWriteTimeout(),
		idle:  deps.Config.GetIdleTimeout(),
	}

	return &Server{
		cfg:       deps.Config.API,
		timeouts:  timeouts,
		logger:    deps.Logger,
		users:     deps.Users,
		tasks:     deps.Tasks,
		db:        deps.DB,
		events:    deps.Events,
		audit:     deps.Audit,
		hasher:    auth.NewHasher(deps.Config.Security.Password.BcryptCost),
		jwtSecret: deps.Config.Security.JWT.Secret,
		tokenTTL:  deps.Config.GetTokenTTL(),
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listen address and serves requests in a background
// goroutine until Close is called.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than only being logged.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       s.timeouts.read,
		ReadHeaderTimeout: s.timeouts.read,
		WriteTimeout:      s.timeouts.write,
		IdleTimeout:       s.timeouts.idle,
	}

	srv := s.server
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
