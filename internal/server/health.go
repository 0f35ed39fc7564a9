package server

import (
	"context"
	"net/http"
	"time"
)

type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth is a liveness probe; it never touches dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResp{Status: "ok"})
}

// handleReady reports whether the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.cfg.DB.PingContext(ctx); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, healthResp{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, healthResp{Status: "ready"})
}
