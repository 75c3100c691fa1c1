package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clauselens/clauselens/extraction"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the extraction error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch extraction.KindOf(err) {
	case extraction.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case extraction.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case extraction.KindPdfPasswordProtected,
		extraction.KindPdfStructureCorrupt,
		extraction.KindDocxParseError,
		extraction.KindEmptyDocument,
		extraction.KindDocumentTooLong:
		return http.StatusUnprocessableEntity
	case extraction.KindOcrQuotaExceeded:
		return http.StatusPaymentRequired
	case extraction.KindOcrServiceUnavailable,
		extraction.KindPdfWorkerUnavailable:
		return http.StatusServiceUnavailable
	case extraction.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
