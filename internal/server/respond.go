package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"doc-library/internal/logging"
)

type messageResp struct {
	Message string `json:"message"`
}

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

// writeMessage answers with {"message": msg}; used for success and for
// client errors.
func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, messageResp{Message: msg})
}

// writeError answers 500 with {"error": err}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, r, http.StatusInternalServerError, errorResp{Error: err.Error()})
}

// maxJSONBytes caps request bodies on the JSON endpoints.
const maxJSONBytes = 10 << 20

// decodeJSON reads a capped JSON body into v. On failure it has already
// answered 413 or 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
