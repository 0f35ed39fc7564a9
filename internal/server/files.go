package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"doc-library/internal/blob"
	"doc-library/internal/db"
	"doc-library/internal/logging"
)

type updateFileReq struct {
	Title    string `json:"title" validate:"required,max=255"`
	Category string `json:"category" validate:"required,max=255"`
}

type updateFileResp struct {
	Message string         `json:"message"`
	File    *db.FileRecord `json:"file"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, files)
}

// handleSearch matches query against title or category. An empty query
// lists everything.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, files)
}

func fileID(r *http.Request) (int64, bool) {
	// files.id is SERIAL; anything outside int4 cannot exist.
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	return id, err == nil && id > 0
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "File not found")
		return
	}

	var req updateFileReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateStruct(req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.files.UpdateMeta(r.Context(), id, req.Title, req.Category)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeMessage(w, r, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updateFileResp{Message: "File updated successfully", File: f})
}

// handleDeleteFile removes the record, then its blobs. A blob that is
// already gone is logged and ignored.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, r, http.StatusNotFound, "File not found")
		return
	}

	f, err := s.files.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeMessage(w, r, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, r, err)
		return
	}

	paths := []string{f.FilePath}
	if f.CoverImagePath != nil {
		paths = append(paths, *f.CoverImagePath)
	}

	var firstErr error
	for _, p := range paths {
		err := s.cfg.Blobs.Remove(r.Context(), blob.NameFromPath(p))
		switch {
		case err == nil:
		case errors.Is(err, blob.ErrNotFound):
			logging.Ctx(r.Context()).Warn().Int64("file_id", id).Str("path", p).Msg("blob already missing")
		default:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		writeError(w, r, firstErr)
		return
	}

	writeMessage(w, r, http.StatusOK, "File deleted successfully")
}
