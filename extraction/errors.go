package extraction

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an extraction attempt. Every failure
// the pipeline can produce maps to exactly one kind; handlers use it to pick
// an HTTP status and a user-facing message.
type Kind string

const (
	KindFileTooLarge          Kind = "FILE_TOO_LARGE"
	KindUnsupportedFormat     Kind = "UNSUPPORTED_FORMAT"
	KindPdfPasswordProtected  Kind = "PDF_PASSWORD_PROTECTED"
	KindPdfStructureCorrupt   Kind = "PDF_STRUCTURE_CORRUPT"
	KindPdfWorkerUnavailable  Kind = "PDF_WORKER_UNAVAILABLE"
	KindDocxParseError        Kind = "DOCX_PARSE_ERROR"
	KindOcrServiceUnavailable Kind = "OCR_SERVICE_UNAVAILABLE"
	KindOcrQuotaExceeded      Kind = "OCR_QUOTA_EXCEEDED"
	KindEmptyDocument         Kind = "EMPTY_DOCUMENT"
	KindDocumentTooLong       Kind = "DOCUMENT_TOO_LONG"
	KindTimeout               Kind = "EXTRACTION_TIMEOUT"
)

// Error is a typed extraction failure. Message is safe to show to users;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

// KindOf returns the kind carried by err, or the empty string when err is
// not an extraction error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message carried by err, or a generic
// fallback for untyped errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
