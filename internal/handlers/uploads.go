package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/internal/services"
)

const (
	formFieldFile      = "file"
	multipartOverhead  = 1 << 20
	maxMultipartMemory = 8 << 20
	sniffLength        = 512
)

// UploadHandler accepts image uploads.
type UploadHandler struct {
	uploads *services.UploadService
}

func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// UploadRouter registers upload routes on the given router.
func UploadRouter(r chi.Router, uploads *services.UploadService, auth *Authenticator) {
	handler := NewUploadHandler(uploads)

	r.With(auth.RequireAuth).Post("/", handler.Upload)
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.uploads.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, apperr.Validation(fmt.Sprintf("file exceeds the %dMB limit", limit>>20)))
			return
		}
		writeServiceError(w, apperr.Validation("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeServiceError(w, apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	contentType, err := detectContentType(file, header)
	if err != nil {
		writeServiceError(w, apperr.Validation("failed to read upload"))
		return
	}

	upload, err := h.uploads.Upload(r.Context(), subjectFromContext(r.Context()), services.UploadInput{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

// detectContentType prefers the part's declared type and sniffs the first
// bytes otherwise. The file is rewound afterwards.
func detectContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	declared := strings.TrimSpace(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	buf := make([]byte, sniffLength)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
