package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/apikit/authz"
	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/server/endpoint"
	"github.com/kbukum/apikit/server/middleware"
)

// Server is an HTTP server backed by Gin, serving HTTP/1.1 and h2c on the
// same port.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	listener   net.Listener
}

// New creates a new Server. No middleware is applied yet.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, h2c included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ApplyMiddleware applies the standard middleware stack: recovery,
// request id and request logging.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger(s.log))
}

// MountGateway registers the liveness endpoint and the downstream gateway
// under the configured prefix. Gateway routes require a principal unless
// AllowAnonymous is set, and a grant when Access is configured.
func (s *Server) MountGateway(serviceName string, api *downstream.API, parser middleware.TokenParser) {
	s.engine.GET("/alive", endpoint.Liveness(serviceName))

	group := s.engine.Group(s.config.GatewayPrefix)
	group.Use(middleware.Principal(middleware.PrincipalConfig{
		Parser:   parser,
		Optional: s.config.AllowAnonymous,
		Log:      s.log,
	}))
	if len(s.config.Access) > 0 {
		group.Use(middleware.Authorize(authz.NewMapChecker(s.config.Access), s.log))
	}
	group.Any("/:service/*path", Gateway(api))
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Addr returns the bound address once started, the configured one otherwise.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
