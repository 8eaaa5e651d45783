package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"aether-backend/internal/models"
	"aether-backend/internal/services"
)

type textExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
	MaxBytes() int64
}

type urlFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*models.ExtractedContent, error)
}

// IngestHandler turns uploads and links into text the study assistant can read.
type IngestHandler struct {
	files textExtractor
	urls  urlFetcher
}

func NewIngestHandler(files textExtractor, urls urlFetcher) *IngestHandler {
	return &IngestHandler{files: files, urls: urls}
}

func (h *IngestHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxBytes()+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "File is too large", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A file field is required", r))
		return
	}
	defer file.Close()

	if !services.SupportedExtension(header.Filename) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_MEDIA", "Only .txt, .md, .pdf and .docx files are supported", r))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.files.MaxBytes()+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read the uploaded file", r))
		return
	}

	text, err := h.files.ExtractText(header.Filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ExtractedContent{
		Content: text,
		Title:   header.Filename,
		Source:  "file",
	})
}

func (h *IngestHandler) FetchURL(w http.ResponseWriter, r *http.Request) {
	var req models.FetchURLRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	content, err := h.urls.Fetch(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}
