package server

import (
	"net/http"

	"doc-library/internal/logging"
)

// handleInit creates the schema if it does not exist. Safe to repeat.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Migrate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Msg("schema initialised")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Tables created successfully"))
}
