// Package server serves a drill library and its images over HTTP for
// previewing the remote-image variant before publishing it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a3tai/hblib/internal/library"
	"github.com/a3tai/hblib/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Options configures the preview server
type Options struct {
	// ImagesRoot is the directory library image paths are relative to
	ImagesRoot string
	// Version is stamped into the remote variant
	Version string
	// BaseURL overrides the image base URL; empty means this server
	BaseURL string
	// Now is used for created_at; nil means time.Now
	Now func() time.Time
}

// Server holds the library and the routes serving it
type Server struct {
	lib    *library.Library
	images *security.Root
	opts   Options
	logger zerolog.Logger
	router chi.Router
}

// New creates a server for lib with all routes configured
func New(lib *library.Library, opts Options, logger zerolog.Logger) (*Server, error) {
	images, err := security.NewRoot(opts.ImagesRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid images root: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	lib.Normalize()

	s := &Server{
		lib:    lib,
		images: images,
		opts:   opts,
		logger: logger,
		router: chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.logger))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/library.json", s.handleLibrary)
	s.router.Get("/library/compact.json", s.handleCompact)
	s.router.Get("/library/remote.json", s.handleRemote)
	s.router.Get("/stats", s.handleStats)
	s.router.Get("/sessions", s.handleSessions)
	s.router.Get("/sessions/{id}", s.handleSession)
	s.router.Get("/"+library.ImageDirRoot+"/*", s.handleImage)
}

// Run listens on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Int("sessions", len(s.lib.Sessions)).Msg("preview server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	}
}
