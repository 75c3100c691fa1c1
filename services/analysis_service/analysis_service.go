package analysis_service

import (
	"context"
)

// Field names mirror the structured-output schema the model is asked to
// fill, so the JSON round-trips unchanged between the model, validation and
// the API response.

type ContractSummary struct {
	ExecutiveSummary string   `json:"executiveSummary"`
	Obligations      []string `json:"obligations"`
	Rights           []string `json:"rights"`
	Commercials      string   `json:"commercials"`
	Exit             string   `json:"exit"`
	Risk             string   `json:"risk"`
	PowerBalance     string   `json:"powerBalance"`
	Top3Takeaways    []string `json:"top3Takeaways"`
}

type Factor struct {
	Factor string `json:"factor"`
	Status string `json:"status"` // Healthy | Neutral | Risky
	Detail string `json:"detail"`
}

type ClauseRisk struct {
	Title         string `json:"title"`
	TechnicalTerm string `json:"technicalTerm"`
	RiskType      string `json:"riskType"`
	WorstCase     string `json:"worstCase"`
	Impact        string `json:"impact"`
	Deviation     string `json:"deviation"`
	Action        string `json:"action"`
	Reference     string `json:"reference"`
}

type Coverage struct {
	SectionsCovered int      `json:"sectionsCovered"`
	SkippedSections []string `json:"skippedSections"`
	IsComplete      bool     `json:"isComplete"`
}

// Report is the full structured risk analysis of one contract.
type Report struct {
	Score             int             `json:"score"`
	Verdict           string          `json:"verdict"` // Market-Standard | Negotiable | One-Sided | High Risk | INVALID_DOCUMENT
	Confidence        string          `json:"confidence"`
	ConfidenceReason  string          `json:"confidenceReason"`
	RiskAnchor        string          `json:"riskAnchor"`
	AnalyzedRole      string          `json:"analyzedRole"`
	MarketComparison  string          `json:"marketComparison"`
	ExecutiveSummary  string          `json:"executiveSummary"`
	SignedAsIsOutcome string          `json:"signedAsIsOutcome"`
	ContractSummary   ContractSummary `json:"contractSummary"`
	Factors           []Factor        `json:"factors"`
	MissingClauses    []string        `json:"missingClauses"`
	NegotiationMoves  []string        `json:"negotiationMoves"`
	Coverage          Coverage        `json:"coverage"`
	TopRisks          []ClauseRisk    `json:"topRisks"`
}

// Anchor is the fast preliminary judgment: one sentence and a coarse
// verdict, cheap enough to show while the full analysis runs.
type Anchor struct {
	RiskAnchor string `json:"riskAnchor"`
	Verdict    string `json:"verdict"` // Standard | Negotiable | Risky | Dangerous
}

// ChatMessage is one turn of a contract Q&A conversation. Role is "user" or
// "model"; anything else is dropped before the exchange is sent upstream.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type AnalysisService interface {
	Analyze(ctx context.Context, text, country, contractType string) (*Report, error)
	QuickAnchor(ctx context.Context, text, country, contractType string) (*Anchor, error)
	Chat(ctx context.Context, contractText string, history []ChatMessage, question string) (string, error)
}
