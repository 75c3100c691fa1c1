package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/clauselens/clauselens/extraction"
	"github.com/clauselens/clauselens/services/analysis_service"
	"github.com/clauselens/clauselens/storage"
)

// ReviewStore is what the HTTP layer needs from review persistence.
type ReviewStore interface {
	Save(ctx context.Context, r *storage.Review) error
	Get(ctx context.Context, id uuid.UUID) (*storage.Review, error)
	List(ctx context.Context, limit int) ([]storage.Review, error)
}

type ReviewHandler struct {
	extractor     TextExtractor
	analyzer      analysis_service.AnalysisService
	store         ReviewStore
	maxTextLength int
	logger        *slog.Logger
}

func NewReviewHandler(extractor TextExtractor, analyzer analysis_service.AnalysisService, store ReviewStore, maxTextLength int, logger *slog.Logger) *ReviewHandler {
	if maxTextLength <= 0 {
		maxTextLength = 300000
	}
	return &ReviewHandler{
		extractor:     extractor,
		analyzer:      analyzer,
		store:         store,
		maxTextLength: maxTextLength,
		logger:        logger,
	}
}

type reviewResponse struct {
	ID       uuid.UUID                `json:"id"`
	Document *extraction.Document     `json:"document"`
	Analysis *analysis_service.Report `json:"analysis"`
}

// CreateReview runs the full flow: extract the uploaded contract, analyze
// it, persist the outcome.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	req, ok := readUploadedFile(w, r, h.logger)
	if !ok {
		return
	}

	country := r.FormValue("country")
	contractType := r.FormValue("contract_type")

	doc, err := h.extractor.Extract(r.Context(), req)
	if err != nil {
		h.logger.Error("Text extraction failed",
			slog.String("filename", req.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, extraction.MessageOf(err), statusForError(err))
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), doc.Text, country, contractType)
	if err != nil {
		h.logger.Error("Contract analysis failed",
			slog.String("filename", req.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to analyze contract", http.StatusBadGateway)
		return
	}

	analysisJSON, err := json.Marshal(report)
	if err != nil {
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	review := &storage.Review{
		ID:                  uuid.New(),
		Filename:            req.Filename,
		Country:             country,
		ContractType:        contractType,
		PagesDetected:       doc.Metadata.PagesDetected,
		CharactersExtracted: doc.Metadata.CharactersExtracted,
		SectionsDetected:    doc.Metadata.SectionsDetected,
		Analysis:            analysisJSON,
		CreatedAt:           time.Now().UTC(),
	}
	if err := h.store.Save(r.Context(), review); err != nil {
		writeJSONError(w, "Failed to save review", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, reviewResponse{
		ID:       review.ID,
		Document: doc,
		Analysis: report,
	})
}

type anchorRequest struct {
	Text         string `json:"text"`
	Country      string `json:"country"`
	ContractType string `json:"contract_type"`
}

// QuickAnchor returns the fast preliminary judgment for already-extracted
// text, so the client can show a first impression while the full analysis
// runs.
func (h *ReviewHandler) QuickAnchor(w http.ResponseWriter, r *http.Request) {
	var req anchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		writeJSONError(w, "Contract text is required", http.StatusBadRequest)
		return
	}
	if len(req.Text) > h.maxTextLength {
		writeJSONError(w, "Contract text exceeds the length limit", http.StatusUnprocessableEntity)
		return
	}

	anchor, err := h.analyzer.QuickAnchor(r.Context(), req.Text, req.Country, req.ContractType)
	if err != nil {
		h.logger.Error("Quick anchor failed", slog.String("error", err.Error()))
		writeJSONError(w, "Failed to get immediate impression", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, anchor)
}

type chatRequest struct {
	Text     string                         `json:"text"`
	Question string                         `json:"question"`
	History  []analysis_service.ChatMessage `json:"history"`
}

// Chat answers one question about already-extracted contract text, carrying
// the prior conversation turns from the client. The contract text itself is
// never persisted, so the client resubmits it with each exchange.
func (h *ReviewHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" || req.Question == "" {
		writeJSONError(w, "Contract text and question are required", http.StatusBadRequest)
		return
	}
	if len(req.Text) > h.maxTextLength {
		writeJSONError(w, "Contract text exceeds the length limit", http.StatusUnprocessableEntity)
		return
	}

	answer, err := h.analyzer.Chat(r.Context(), req.Text, req.History, req.Question)
	if err != nil {
		h.logger.Error("Contract chat failed", slog.String("error", err.Error()))
		writeJSONError(w, "Failed to generate answer", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		writeJSONError(w, "Invalid review id", http.StatusBadRequest)
		return
	}

	review, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrReviewNotFound) {
			writeJSONError(w, "Review not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to load review",
			slog.String("review_id", id.String()),
			slog.String("error", err.Error()))
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.List(r.Context(), 50)
	if err != nil {
		h.logger.Error("Failed to list reviews", slog.String("error", err.Error()))
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}
