// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package httpapi exposes the newsletter workflows over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lettermill/lettermill/internal/auth"
	"github.com/lettermill/lettermill/internal/observability"
	"github.com/lettermill/lettermill/internal/secret"
	"github.com/lettermill/lettermill/internal/session"
	"github.com/lettermill/lettermill/internal/subscription"
)

// Subscriptions is the slice of the subscription service the API uses.
type Subscriptions interface {
	Subscribe(ctx context.Context, form subscription.SubscribeForm) error
	Confirm(ctx context.Context, token string) error
}

// Newsletters delivers newsletter issues to confirmed subscribers.
type Newsletters interface {
	PublishIssue(ctx context.Context, issue subscription.Issue) error
}

// Authenticator validates login credentials.
type Authenticator interface {
	Validate(ctx context.Context, credentials auth.Credentials) (uuid.UUID, error)
}

// PasswordChanger rotates a logged-in user's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword, newPasswordCheck secret.String) error
}

// UserSession is a session with an identifier suitable for a cookie.
type UserSession interface {
	auth.Session
	ID() string
}

// SessionStore issues and resolves user sessions.
type SessionStore interface {
	New() UserSession
	Load(id string) UserSession
}

// redisSessions adapts session.Store to the SessionStore interface.
type redisSessions struct {
	store *session.Store
}

func (r redisSessions) New() UserSession { return r.store.New() }

func (r redisSessions) Load(id string) UserSession { return r.store.Load(id) }

// NewSessionStore wraps the Redis-backed session store for the API.
func NewSessionStore(store *session.Store) SessionStore {
	return redisSessions{store: store}
}

// Options configures the API server.
type Options struct {
	Addr string
	// SessionTTL bounds the session cookie lifetime.
	SessionTTL time.Duration
	// GinMode overrides the gin mode; empty leaves it alone.
	GinMode string
}

// Deps are the services the API dispatches to. Metrics may be nil.
type Deps struct {
	Subscriptions Subscriptions
	Newsletters   Newsletters
	Authenticator Authenticator
	Passwords     PasswordChanger
	Sessions      SessionStore
	Metrics       *observability.Metrics
}

// Server serves the Lettermill HTTP API.
type Server struct {
	addr       string
	sessionTTL time.Duration
	deps       Deps
	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the API server and registers all routes.
func NewServer(opts Options, deps Deps) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}

	s := &Server{
		addr:       opts.Addr,
		sessionTTL: opts.SessionTTL,
		deps:       deps,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("lettermill"))
	engine.Use(requestLogger())

	engine.GET("/health_check", s.handleHealthCheck)
	engine.POST("/subscriptions", s.handleSubscribe)
	engine.GET("/subscriptions/confirm", s.handleConfirm)
	engine.POST("/login", s.handleLogin)
	engine.POST("/newsletters", s.handlePublishNewsletter)

	admin := engine.Group("/admin", s.requireSession())
	admin.POST("/logout", s.handleLogout)
	admin.POST("/password", s.handleChangePassword)

	s.engine = engine
	return s
}

// Handler exposes the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving the API. It returns an error channel that receives
// any serve failure; the channel closes on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	slog.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if stopped.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleHealthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
