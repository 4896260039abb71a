package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/importer"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
//
// Registries and Logger are mandatory. Everything else degrades
// gracefully when nil: no audit writes, no MQTT announcements, no usage
// points, no import endpoint, no database stats in /system/info.
type Deps struct {
	Server      config.ServerConfig
	WS          config.WebSocketConfig
	Auth        config.AuthConfig
	Logger      *logging.Logger
	Registries  *blueprint.Registries
	Importer    *importer.Importer
	AuditRepo   audit.Repository
	MQTT        *mqtt.Client
	Usage       *usage.Client
	DB          *database.DB
	CoreVersion string // running core version, checked against blueprint min_version
	Version     string // this service's version
}

// Server is the HTTP API server for the blueprint service.
//
// It manages the HTTP listener, routes, middleware, WebSocket hub, and
// the asynchronous audit writer. Create with New(), start with Start(),
// stop with Close().
type Server struct {
	cfg         config.ServerConfig
	wsCfg       config.WebSocketConfig
	authCfg     config.AuthConfig
	logger      *logging.Logger
	registries  *blueprint.Registries
	importer    *importer.Importer
	auditRepo   audit.Repository
	auditCh     chan *audit.AuditLog
	mqtt        *mqtt.Client
	usage       *usage.Client
	db          *database.DB
	coreVersion string
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Registries == nil {
		return nil, errors.New("blueprint registries are required")
	}
	if deps.Auth.JWTSecret == "" {
		return nil, errors.New("auth JWT secret is required")
	}

	s := &Server{
		cfg:         deps.Server,
		wsCfg:       deps.WS,
		authCfg:     deps.Auth,
		logger:      deps.Logger,
		registries:  deps.Registries,
		importer:    deps.Importer,
		auditRepo:   deps.AuditRepo,
		mqtt:        deps.MQTT,
		usage:       deps.Usage,
		db:          deps.DB,
		coreVersion: deps.CoreVersion,
		version:     deps.Version,
		startTime:   time.Now(),
		tickets:     newTicketStore(),
	}

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.AuditLog, auditChanSize)
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, the audit writer, the ticket janitor,
// and the HTTP listener in background goroutines. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	go s.cleanTicketsLoop(srvCtx)

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go s.serve()
	return nil
}

// serve runs the listener until Close. ErrServerClosed is the normal
// shutdown path; anything else gets logged.
func (s *Server) serve() {
	var err error
	if s.cfg.TLS.Enabled {
		s.logger.Info("API server starting with TLS",
			"address", s.server.Addr,
			"cert", s.cfg.TLS.CertFile,
		)
		err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("API server error", "error", err)
	}
}

// Close gracefully shuts down the API server.
//
// In-flight requests get gracefulShutdownTimeout to finish; connections
// still open after that are dropped.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Stop background goroutines (hub, ticket janitor, audit writer).
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}

	return nil
}
