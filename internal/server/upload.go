package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"doc-library/internal/blob"
	"doc-library/internal/db"
	"doc-library/internal/logging"
	"doc-library/internal/metrics"
)

// Parts above this size are spooled to temporary files while parsing.
const multipartMemory = 8 << 20

type uploadForm struct {
	Title    string `form:"title" validate:"required,max=255"`
	UserID   string `form:"userId" validate:"required,numeric"`
	Category string `form:"category" validate:"required,max=255"`
	Division string `form:"division" validate:"required,max=255"`
}

type uploadResp struct {
	Message        string  `json:"message"`
	PDFFilePath    string  `json:"pdfFilePath"`
	CoverImagePath *string `json:"coverImagePath"`
}

// handleUpload stores a PDF, an optional cover image and their record.
// Blobs are written before the insert; if the insert fails they stay
// behind as orphans.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeMessage(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	pdf := firstFile(r.MultipartForm, "pdf")
	if pdf == nil {
		writeMessage(w, r, http.StatusBadRequest, "PDF file is required")
		return
	}
	cover := firstFile(r.MultipartForm, "coverImage")

	form := uploadForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		UserID:   strings.TrimSpace(r.FormValue("userId")),
		Category: strings.TrimSpace(r.FormValue("category")),
		Division: strings.TrimSpace(r.FormValue("division")),
	}
	if err := validateStruct(form); err != nil {
		writeMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := strconv.ParseInt(form.UserID, 10, 64)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "userId must be numeric")
		return
	}

	pdfPath, err := s.storeFile(r, pdf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var coverPath *string
	if cover != nil {
		p, err := s.storeFile(r, cover)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Str("pdf", pdfPath).Msg("cover write failed, pdf blob orphaned")
			writeError(w, r, err)
			return
		}
		coverPath = &p
	}

	if _, err := s.files.Insert(r.Context(), db.NewFile{
		UserID:         userID,
		Title:          form.Title,
		Category:       form.Category,
		Division:       form.Division,
		FilePath:       pdfPath,
		CoverImagePath: coverPath,
	}); err != nil {
		ev := logging.Ctx(r.Context()).Warn().Str("pdf", pdfPath)
		if coverPath != nil {
			ev = ev.Str("cover", *coverPath)
		}
		ev.Msg("record insert failed, blobs orphaned")
		writeError(w, r, err)
		return
	}

	metrics.UploadsTotal.Inc()
	writeJSON(w, r, http.StatusOK, uploadResp{
		Message:        "File and cover image uploaded successfully",
		PDFFilePath:    pdfPath,
		CoverImagePath: coverPath,
	})
}

// storeFile writes one uploaded part to blob storage and returns its
// recorded path.
func (s *Server) storeFile(r *http.Request, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	name := blob.NewName(fh.Filename)
	if err := s.cfg.Blobs.Put(r.Context(), name, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	metrics.UploadBytes.Add(float64(fh.Size))
	return blob.Path(name), nil
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if fhs := form.File[field]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}
