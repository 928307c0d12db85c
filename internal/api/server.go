// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes feed sessions over HTTP. Renderers drive a session with
// input endpoints and receive media commands and state on an event stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/api/middleware"
	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/config"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/health"
	"github.com/ManuGH/reelfeed/internal/identity"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/session"
)

// HeaderViewerID carries the opaque viewer identity. Requests without it are
// anonymous.
const HeaderViewerID = "X-Viewer-ID"

// DefaultKeepAlive is the comment interval on idle event streams.
const DefaultKeepAlive = 15 * time.Second

const maxBodyBytes = 64 << 10

// Sessions is the session registry the API drives.
type Sessions interface {
	Create(ctx context.Context, viewer identity.Identity, vp session.Viewport) (*session.Session, error)
	Get(id string) (*session.Session, error)
	Close(ctx context.Context, id, reason string) error
}

// Config configures the HTTP surface.
type Config struct {
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
	// TracingService enables request spans under this service name.
	TracingService string
	KeepAlive      time.Duration
}

// Server is the feed HTTP API.
type Server struct {
	cfg      Config
	sessions Sessions
	bus      bus.Bus
	health   *health.Manager
	logger   zerolog.Logger
}

// New creates the API server.
func New(cfg Config, sessions Sessions, b bus.Bus, hm *health.Manager) *Server {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		bus:      b,
		health:   hm,
		logger:   xglog.WithComponent("api"),
	}
}

// Handler returns the routed handler with the ingress stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(viewerIdentity)
		if s.cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.cfg.RateLimit.Requests,
				WindowSize:   s.cfg.RateLimit.Window,
			}))
		}
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/scroll", s.handleScroll)
			r.Post("/keys", s.handleKey)
			r.Post("/jump", s.handleJump)
			r.Post("/taps", s.handleTap)
			r.Post("/visibility", s.handleVisibility)
			r.Post("/media/{itemID}/events", s.handleMediaEvent)
			r.Post("/media/{itemID}/play-result", s.handlePlayResult)
			r.Get("/commands", s.handleCommands)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "not_found", "Not Found", "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "")
	})
	return r
}

// viewerIdentity stores the X-Viewer-ID header as the request identity.
func viewerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(HeaderViewerID); id != "" {
			r = r.WithContext(identity.NewContext(r.Context(), identity.Identity{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

// session resolves the {sessionID} route parameter, writing a problem when
// the session is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// apply runs fn on the session loop and answers with the resulting snapshot.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, sess *session.Session, fn func(*feed.Controller) error) {
	var (
		fnErr error
		snap  feed.Snapshot
	)
	err := sess.Do(r.Context(), func(c *feed.Controller) {
		fnErr = fn(c)
		snap = c.Snapshot()
	})
	if err == nil {
		err = fnErr
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
