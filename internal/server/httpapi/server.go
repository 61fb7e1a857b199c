// Package httpapi exposes the account flows and the request gate over
// HTTP/JSON using gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/orgchart/internal/logging"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/dmitrijs2005/orgchart/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// AccountService is the part of services.AccountService the handlers use.
type AccountService interface {
	Register(ctx context.Context, username, password string) (*services.Session, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
}

type HTTPServer struct {
	address         string
	logger          logging.Logger
	accounts        AccountService
	tokens          auth.TokenService
	registry        *prometheus.Registry
	metrics         *Metrics
	shutdownTimeout time.Duration
	protected       []func(*gin.RouterGroup)
}

type Option func(*HTTPServer)

// WithProtectedRoutes mounts extra resource handlers under /api, behind the
// request gate.
func WithProtectedRoutes(mount func(rg *gin.RouterGroup)) Option {
	return func(s *HTTPServer) { s.protected = append(s.protected, mount) }
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *HTTPServer) { s.shutdownTimeout = d }
}

func NewHTTPServer(address string, l logging.Logger, accounts AccountService, tokens auth.TokenService,
	reg *prometheus.Registry, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address:         address,
		logger:          l.With("module", "http_server"),
		accounts:        accounts,
		tokens:          tokens,
		registry:        reg,
		metrics:         NewMetrics(reg),
		shutdownTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run listens on the configured address and serves until ctx is done.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
