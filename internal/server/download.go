package server

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"doc-library/internal/blob"
	"doc-library/internal/logging"
	"doc-library/internal/metrics"
)

// handleDownload streams uploads/<filename> as an attachment. There is no
// record lookup; any stored blob name is downloadable.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || !blob.ValidName(name) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	rc, info, err := s.cfg.Blobs.Open(r.Context(), name)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			logging.Ctx(r.Context()).Error().Err(err).Str("name", name).Msg("open blob")
		}
		http.Error(w, "File not found", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	metrics.DownloadsTotal.Inc()
	http.ServeContent(w, r, name, info.ModTime, rc)
}

// handleStatic serves stored blobs inline under /uploads/.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || !blob.ValidName(name) {
		http.NotFound(w, r)
		return
	}

	rc, info, err := s.cfg.Blobs.Open(r.Context(), name)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			logging.Ctx(r.Context()).Error().Err(err).Str("name", name).Msg("open blob")
		}
		http.NotFound(w, r)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	http.ServeContent(w, r, name, info.ModTime, rc)
}
