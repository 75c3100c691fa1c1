package ocr_service

import (
	"context"
)

// OCRService recognizes text in an uploaded image or a scanned document.
type OCRService interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}
