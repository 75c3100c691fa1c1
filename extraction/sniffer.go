package extraction

import (
	"path/filepath"
	"strings"
)

// Format is the sniffed class of an uploaded file.
type Format string

const (
	FormatPDF         Format = "PDF"
	FormatDOCX        Format = "DOCX"
	FormatImage       Format = "IMAGE"
	FormatUnsupported Format = "UNSUPPORTED"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// imageExtensions holds the accepted image extensions for uploads.
var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// Classify maps a declared MIME type plus filename onto a supported format.
// The declared type is checked first, the extension is the fallback for
// clients that upload with a generic content type. Precedence when both
// would match is PDF > DOCX > IMAGE.
func Classify(mimeType, filename string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	switch {
	case mimeType == mimePDF || ext == "pdf":
		return FormatPDF
	case mimeType == mimeDOCX || ext == "docx":
		return FormatDOCX
	case strings.HasPrefix(mimeType, "image/"):
		return FormatImage
	}

	if _, ok := imageExtensions[ext]; ok {
		return FormatImage
	}

	return FormatUnsupported
}
