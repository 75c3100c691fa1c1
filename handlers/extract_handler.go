package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/clauselens/clauselens/extraction"
)

// multipartFormLimit is the in-memory budget for parsing the upload form.
// It sits above the extraction pipeline's own file-size gate so the gate is
// the one that decides, with a typed error, whether the file is too large.
const multipartFormLimit = 12 << 20

// TextExtractor is what the HTTP layer needs from the extraction pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, req extraction.Request) (*extraction.Document, error)
}

type ExtractHandler struct {
	extractor TextExtractor
	logger    *slog.Logger
}

func NewExtractHandler(extractor TextExtractor, logger *slog.Logger) *ExtractHandler {
	return &ExtractHandler{
		extractor: extractor,
		logger:    logger,
	}
}

func (h *ExtractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, ok := readUploadedFile(w, r, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	doc, err := h.extractor.Extract(r.Context(), req)
	if err != nil {
		h.logger.Error("Text extraction failed",
			slog.String("filename", req.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, extraction.MessageOf(err), statusForError(err))
		return
	}

	h.logger.Info("Extraction request served",
		slog.String("filename", req.Filename),
		slog.Float64("extraction_seconds", time.Since(start).Seconds()))

	writeJSON(w, http.StatusOK, doc)
}

// readUploadedFile pulls the multipart "file" field into an extraction
// request. On failure it writes the error response itself and returns
// ok=false.
func readUploadedFile(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (extraction.Request, bool) {
	if err := r.ParseMultipartForm(multipartFormLimit); err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return extraction.Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return extraction.Request{}, false
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return extraction.Request{}, false
	}

	logger.Debug("Received file upload",
		slog.String("filename", header.Filename),
		slog.String("content_type", header.Header.Get("Content-Type")),
		slog.Int64("size", header.Size))

	return extraction.Request{
		Data:     buf.Bytes(),
		MimeType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	}, true
}
