package extraction

import (
	"bytes"
	"context"
	"log/slog"

	"code.sajari.com/docconv/v2"
)

// DOCXExtractor unpacks the raw text of a Word document. There is no
// pagination concept here; page estimation from character count happens in
// the normalizer.
type DOCXExtractor struct {
	logger *slog.Logger
}

func NewDOCXExtractor(logger *slog.Logger) *DOCXExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCXExtractor{logger: logger}
}

func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewError(KindTimeout, "extraction timed out", err)
	}

	result, err := docconv.Convert(bytes.NewReader(data), mimeDOCX, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", NewError(KindDocxParseError, "failed to parse Word document", err)
	}

	e.logger.Debug("Extracted text from Word document",
		slog.Int("text_length", len(result.Body)))

	return result.Body, nil
}
