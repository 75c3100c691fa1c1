package ocr_service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clauselens/clauselens/extraction"
	"github.com/clauselens/clauselens/retry"
)

const ocrPrompt = "Extract all text from this contract document accurately."

type Config struct {
	APIURL      string
	APIKey      string
	MaxAttempts int
	RetryDelay  time.Duration
}

// GeminiOCR sends the raw bytes to Gemini as inline data and returns the
// recognized text. Transient upstream failures are retried; a hard quota
// condition is surfaced distinctly and never retried.
type GeminiOCR struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

func NewGeminiOCR(cfg Config, logger *slog.Logger) *GeminiOCR {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &GeminiOCR{
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
	}
}

func (s *GeminiOCR) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	var text string

	err := retry.Do(ctx, s.maxAttempts, s.retryDelay, isTransient, func() error {
		out, err := s.callGemini(ctx, data, mimeType)
		if err != nil {
			s.logger.Warn("OCR attempt failed",
				slog.String("error", err.Error()))
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		var typed *extraction.Error
		if errors.As(err, &typed) {
			return "", err
		}
		s.logger.Error("OCR failed",
			slog.Int("max_attempts", s.maxAttempts),
			slog.String("error", err.Error()))
		return "", extraction.NewError(extraction.KindOcrServiceUnavailable, "failed to extract text from image", err)
	}

	return text, nil
}

func (s *GeminiOCR) callGemini(ctx context.Context, data []byte, mimeType string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"inline_data": map[string]string{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(data),
						},
					},
					{"text": ocrPrompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.0,
			"maxOutputTokens":  8192,
			"responseMimeType": "text/plain",
		},
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", s.apiURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		if isQuotaResponse(resp.StatusCode, body) {
			return "", extraction.NewError(extraction.KindOcrQuotaExceeded,
				"OCR quota exhausted; please upgrade your plan", &apiError{StatusCode: resp.StatusCode, Body: string(body)})
		}
		return "", &apiError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseCandidateText(body)
}

// parseCandidateText digs the first candidate's text out of a Gemini
// generateContent response.
func parseCandidateText(body []byte) (string, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	candidates, ok := result["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini API")
	}

	content, ok := candidates[0].(map[string]interface{})["content"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("content not found in Gemini API response")
	}

	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("parts not found in Gemini API response")
	}

	text, ok := parts[0].(map[string]interface{})["text"].(string)
	if !ok {
		return "", fmt.Errorf("text not found in Gemini API response")
	}

	return text, nil
}

// apiError is a non-2xx Gemini response.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("Gemini API error (HTTP %d): %s", e.StatusCode, truncate(e.Body, 512))
}

// isQuotaResponse distinguishes a hard quota/billing limit from a transient
// rate limit. Gemini reports both as 429; only the RESOURCE_EXHAUSTED body
// marks exhausted quota. A fronting proxy may also answer 402 directly.
func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusPaymentRequired {
		return true
	}
	if status != http.StatusTooManyRequests {
		return false
	}
	s := string(body)
	return strings.Contains(s, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(s), "quota")
}

// isTransient reports whether a failed attempt is worth retrying: an
// overloaded or rate-limited upstream, or a transport-level failure.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var typed *extraction.Error
	if errors.As(err, &typed) {
		return false
	}
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode == http.StatusServiceUnavailable
	}
	// Transport-level failures (connection reset, refused) get the
	// remaining attempts.
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
