package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Request is the ephemeral upload payload: raw bytes plus what the client
// declared about them. It is consumed synchronously and never persisted.
type Request struct {
	Data     []byte
	MimeType string
	Filename string
}

// Metadata describes the structure of an extracted document.
type Metadata struct {
	PagesDetected       int    `json:"pages_detected"`
	CharactersExtracted int    `json:"characters_extracted"`
	SectionsDetected    int    `json:"sections_detected"`
	PreviewStart        string `json:"preview_start"`
	PreviewEnd          string `json:"preview_end"`
}

// Document is the pipeline's output: normalized full text, page-delimited
// for multi-page sources, plus structural metadata.
type Document struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// PDFTextExtractor and DOCXTextExtractor are the native extraction
// strategies; OCRClient is the recognition capability used directly for
// images and as the scanned-PDF fallback.
type PDFTextExtractor interface {
	Extract(ctx context.Context, data []byte) (PDFResult, error)
}

type DOCXTextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type OCRClient interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Config carries the pipeline's resource bounds. Zero values fall back to
// the shipped defaults.
type Config struct {
	PageCap              int
	BatchSize            int
	MaxTextLength        int
	MaxFileSize          int64 // bytes
	ScannedTextThreshold int
	PDFWorkerPool        int
	Timeout              time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageCap <= 0 {
		c.PageCap = 30
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = 300000
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 << 20
	}
	if c.ScannedTextThreshold <= 0 {
		c.ScannedTextThreshold = 50
	}
	if c.PDFWorkerPool <= 0 {
		c.PDFWorkerPool = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Service is the extraction orchestrator: it sizes-gates the upload, routes
// by sniffed format, applies the scanned-PDF fallback and validates the
// result. It holds no per-request state; concurrent calls are independent.
type Service struct {
	cfg    Config
	pdf    PDFTextExtractor
	docx   DOCXTextExtractor
	ocr    OCRClient
	logger *slog.Logger
}

func NewService(cfg Config, ocr OCRClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Service{
		cfg:    cfg,
		pdf:    NewPDFExtractor(cfg.PageCap, cfg.BatchSize, cfg.PDFWorkerPool, logger),
		docx:   NewDOCXExtractor(logger),
		ocr:    ocr,
		logger: logger,
	}
}

// NewServiceWith wires explicit extractor implementations; tests use it to
// inject stubs.
func NewServiceWith(cfg Config, pdf PDFTextExtractor, docx DOCXTextExtractor, ocr OCRClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Service{cfg: cfg, pdf: pdf, docx: docx, ocr: ocr, logger: logger}
}

// Extract runs the full pipeline and returns the normalized document, or a
// typed error. No partial results are ever returned.
func (s *Service) Extract(ctx context.Context, req Request) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if int64(len(req.Data)) > s.cfg.MaxFileSize {
		return nil, NewError(KindFileTooLarge,
			fmt.Sprintf("file size exceeds %dMB limit; please upload a smaller file", s.cfg.MaxFileSize>>20), nil)
	}

	format := Classify(req.MimeType, req.Filename)

	s.logger.Debug("Starting text extraction",
		slog.String("filename", req.Filename),
		slog.String("content_type", req.MimeType),
		slog.String("format", string(format)),
		slog.Int("size", len(req.Data)))

	var (
		text     string
		pageHint int
	)

	switch format {
	case FormatPDF:
		result, err := s.pdf.Extract(ctx, req.Data)
		if err != nil {
			return nil, err
		}
		text, pageHint = result.Text, result.PageCount

		// A text layer shorter than the threshold means the PDF is
		// almost certainly a scan; rerun the original bytes through
		// OCR and replace the native output wholesale. The reported
		// page count stays the true PDF page count.
		if signal := strippedSignal(text); len(signal) < s.cfg.ScannedTextThreshold {
			s.logger.Info("Native PDF text below signal threshold, falling back to OCR",
				slog.String("filename", req.Filename),
				slog.Int("signal_length", len(signal)),
				slog.Int("threshold", s.cfg.ScannedTextThreshold))
			ocrText, err := s.ocr.Recognize(ctx, req.Data, mimePDF)
			if err != nil {
				return nil, err
			}
			text = ocrText
		}

	case FormatDOCX:
		out, err := s.docx.Extract(ctx, req.Data)
		if err != nil {
			return nil, err
		}
		text, pageHint = out, 0

	case FormatImage:
		out, err := s.ocr.Recognize(ctx, req.Data, req.MimeType)
		if err != nil {
			return nil, err
		}
		text, pageHint = out, 1

	default:
		return nil, NewError(KindUnsupportedFormat, "unsupported file type; please upload PDF, DOCX, JPG, or PNG", nil)
	}

	doc, err := Finalize(text, pageHint, s.cfg.MaxTextLength)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Extraction complete",
		slog.String("filename", req.Filename),
		slog.String("format", string(format)),
		slog.Int("pages_detected", doc.Metadata.PagesDetected),
		slog.Int("characters_extracted", doc.Metadata.CharactersExtracted),
		slog.Int("sections_detected", doc.Metadata.SectionsDetected))

	return doc, nil
}

var (
	pageMarkerPattern = regexp.MustCompile(`(?m)^--- PAGE \d+ ---$`)
	truncationPattern = regexp.MustCompile(`\.\.\.\[Truncated:[^\]]*\]\.\.\.`)
)

// strippedSignal removes the page delimiters, the truncation notice and
// page-error placeholders so the scanned-document check measures only real
// extracted content.
func strippedSignal(text string) string {
	out := pageMarkerPattern.ReplaceAllString(text, "")
	out = truncationPattern.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, pageErrorPlaceholder, "")
	return strings.TrimSpace(out)
}
