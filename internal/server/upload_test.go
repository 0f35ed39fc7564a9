package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-library/internal/blob"
)

const insertFileQuery = `INSERT\s+INTO\s+files`

type filePart struct {
	field, filename, ctype string
	content                []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.filename + `"`}
		h["Content-Type"] = []string{f.ctype}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{"title": "Go in Action", "userId": "1", "category": "Programming", "division": "Books"}
}

func fileRow(id int64, pdf string, cover any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "category", "division", "file_path", "cover_image_path", "upload_date"}).
		AddRow(id, int64(1), "Go in Action", "Programming", "Books", pdf, cover, time.Now())
}

func readBlob(t *testing.T, s blob.Store, path string) []byte {
	t.Helper()
	rc, _, err := s.Open(context.Background(), blob.NameFromPath(path))
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestUpload_PDFOnly(t *testing.T) {
	env := newTestEnv(t)
	pdf := []byte("%PDF-1.7\n\x00\x01binary payload")

	env.mock.ExpectQuery(insertFileQuery).
		WithArgs(int64(1), "Go in Action", "Programming", "Books", sqlmock.AnyArg(), nil).
		WillReturnRows(fileRow(1, "uploads/x.pdf", nil))

	rr := env.do(multipartRequest(t, validFields(), filePart{"pdf", "book.pdf", "application/pdf", pdf}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, "File and cover image uploaded successfully", body["message"])
	assert.Contains(t, body, "coverImagePath")
	assert.Nil(t, body["coverImagePath"])

	pdfPath := body["pdfFilePath"].(string)
	assert.Regexp(t, `^uploads/\d+-\d+\.pdf$`, pdfPath)
	assert.Equal(t, pdf, readBlob(t, env.blobs, pdfPath), "stored blob must be byte-identical")
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpload_WithCover(t *testing.T) {
	env := newTestEnv(t)
	cover := []byte("\x89PNG cover")

	env.mock.ExpectQuery(insertFileQuery).
		WithArgs(int64(1), "Go in Action", "Programming", "Books", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(fileRow(2, "uploads/x.pdf", "uploads/y.png"))

	rr := env.do(multipartRequest(t, validFields(),
		filePart{"pdf", "book.pdf", "application/pdf", []byte("%PDF")},
		filePart{"coverImage", "cover.png", "image/png", cover},
	))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	coverPath, ok := body["coverImagePath"].(string)
	require.True(t, ok)
	assert.Regexp(t, `^uploads/\d+-\d+\.png$`, coverPath)
	assert.Equal(t, cover, readBlob(t, env.blobs, coverPath))
}

func TestUpload_MissingPDF(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(multipartRequest(t, validFields(), filePart{"coverImage", "cover.png", "image/png", []byte("x")}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "PDF file is required", decodeBody(t, rr)["message"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpload_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantMsg string
	}{
		{"missing title", func(f map[string]string) { delete(f, "title") }, "title is required"},
		{"missing division", func(f map[string]string) { f["division"] = " " }, "division is required"},
		{"non numeric user", func(f map[string]string) { f["userId"] = "abc" }, "userId must be numeric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			fields := validFields()
			tt.mutate(fields)

			rr := env.do(multipartRequest(t, fields, filePart{"pdf", "b.pdf", "application/pdf", []byte("%PDF")}))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.wantMsg, decodeBody(t, rr)["message"])
			require.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(jsonRequest(http.MethodPost, "/upload", map[string]string{"title": "x"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxUploadBytes = 64 })

	rr := env.do(multipartRequest(t, validFields(), filePart{"pdf", "b.pdf", "application/pdf", bytes.Repeat([]byte("a"), 1024)}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestUpload_TooLargeWithoutContentLength(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.MaxUploadBytes = 512 })
	req := multipartRequest(t, validFields(), filePart{"pdf", "b.pdf", "application/pdf", bytes.Repeat([]byte("a"), 4096)})
	req.ContentLength = -1

	rr := env.do(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "Upload too large", decodeBody(t, rr)["message"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpload_InsertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectQuery(insertFileQuery).WillReturnError(errors.New(`insert or update on table "files" violates foreign key constraint`))

	rr := env.do(multipartRequest(t, validFields(), filePart{"pdf", "b.pdf", "application/pdf", []byte("%PDF")}))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "foreign key")
}
