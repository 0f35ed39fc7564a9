package server

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"doc-library/internal/db"
	"doc-library/internal/metrics"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Message string   `json:"message"`
	User    *db.User `json:"user"`
}

// handleLogin checks the credentials. No session or token is issued.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.GetByEmail(r.Context(), normaliseEmail(req.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("unknown_user").Inc()
			writeMessage(w, r, http.StatusBadRequest, "User not found")
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		writeError(w, r, err)
		return
	}

	// Any compare failure, including an over-long password, is a mismatch.
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		writeMessage(w, r, http.StatusBadRequest, "Incorrect password")
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, r, http.StatusOK, loginResp{Message: "Login successful", User: u})
}
