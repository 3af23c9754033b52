package server

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/a3tai/hblib/internal/library"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lib)
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, library.Compact(s.lib))
}

func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	if version == "" {
		version = s.opts.Version
	}
	writeJSON(w, http.StatusOK, library.Remote(s.lib, version, s.baseURL(r), s.opts.Now()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, library.ComputeStats(s.lib))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, library.Summaries(s.lib))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	session, ok := s.lib.FindSession(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	rel := library.ImageDirRoot + "/" + chi.URLParam(r, "*")
	path, err := s.images.Resolve(rel)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", rel).Msg("rejected image path")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error().Err(err).Str("path", rel).Msg("cannot stat image")
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "image not found"})
		return
	}
	http.ServeFile(w, r, path)
}

// baseURL is the configured image base or this server's own address
func (s *Server) baseURL(r *http.Request) string {
	if s.opts.BaseURL != "" {
		return s.opts.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimSuffix(r.Host, "/") + "/"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := library.EncodeIndent(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
