// Package api exposes the zettelkasten over HTTP.
//
// Endpoints:
//
//	GET  /health                      liveness probe
//	GET  /ready                       readiness probe (pings the database)
//	POST /api/cards                   create a card (schedules first review)
//	GET  /api/cards                   list cards (q, topic, tag, limit, offset)
//	GET  /api/cards/{id}              fetch one card
//	PATCH /api/cards/{id}             partial update
//	POST /api/cards/{id}/archive      archive a card
//	POST /api/cards/{id}/embedding    compute the card's embedding
//	GET  /api/cards/{id}/links        adjacency list
//	GET  /api/cards/{id}/similar      ranked similar cards
//	GET  /api/cards/{id}/suggestions  ranked link suggestions
//	POST /api/links                   create a link (optionally bidirectional)
//	GET  /api/reviews/due             open reviews past due
//	POST /api/reviews/{id}/complete   complete a review, schedule the next
//	GET  /api/reviews/stats           open/due review counts
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, request ID, logging, rate limiting
//   - health.go: probes
//   - cards.go, links.go, reviews.go, suggest.go: resource handlers
//   - response.go: JSON helpers and error mapping
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alfredlabs/zettel/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 60 * time.Second
	IdleTimeout  = 120 * time.Second
)

// Options tunes the server beyond its collaborators.
type Options struct {
	// RateLimitRPS and RateLimitBurst configure the global request
	// limiter. Zero values disable limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the HTTP server for the zettel REST API.
type Server struct {
	mux     *http.ServeMux
	logger  log.Logger
	limiter *rate.Limiter

	health  *HealthHandler
	cards   *CardHandler
	links   *LinkHandler
	reviews *ReviewHandler
	suggest *SuggestHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(store Store, engine Suggester, pinger Pinger, logger log.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(pinger, logger),
		cards:   NewCardHandler(store, logger),
		links:   NewLinkHandler(store, logger),
		reviews: NewReviewHandler(store, logger),
		suggest: NewSuggestHandler(store, engine, logger),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)
	}

	s.health.RegisterRoutes(mux)
	s.cards.RegisterRoutes(mux)
	s.links.RegisterRoutes(mux)
	s.reviews.RegisterRoutes(mux)
	s.suggest.RegisterRoutes(mux)

	return s
}

// Handler returns the handler with middleware applied.
// Order: recovery → request ID → logging → rate limit → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		s.recoveryMiddleware,
		requestIDMiddleware,
		s.loggingMiddleware,
		s.rateLimitMiddleware,
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
