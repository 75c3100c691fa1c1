package ocr_service

import (
	"context"
)

type MockOCRService struct {
	RecognizeFunc func(ctx context.Context, data []byte, mimeType string) (string, error)
	Calls         int
}

func (m *MockOCRService) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	m.Calls++
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, data, mimeType)
	}
	return "mock recognized text", nil
}
