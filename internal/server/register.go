package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"doc-library/internal/logging"
	"doc-library/internal/mail"
	"doc-library/internal/metrics"
)

const bcryptCost = 10

type registerReq struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generatePassword returns 8 random bytes as 16 hex characters.
func generatePassword() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// handleRegister creates an account with a generated password and mails
// the password to the user. Delivery happens in the background; a mail
// failure does not fail registration.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = normaliseEmail(req.Email)
	if err := validateStruct(req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	password, err := generatePassword()
	if err != nil {
		writeError(w, r, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.users.Create(r.Context(), req.Email, string(hash))
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.RegistrationsTotal.Inc()

	if s.cfg.Mail != nil {
		if err := s.cfg.Mail.Enqueue(mail.PasswordMessage(u.Email, password)); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Int64("user_id", u.ID).Msg("password mail not queued")
		}
	}

	writeMessage(w, r, http.StatusOK, "User registered successfully. Password has been sent to your email.")
}
