package analysis_service

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportSchema is the contract the model's structured output must honor.
// Responses failing validation are rejected rather than passed downstream as
// a partial report.
const reportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "verdict": {"type": "string", "enum": ["Market-Standard", "Negotiable", "One-Sided", "High Risk", "INVALID_DOCUMENT"]},
    "confidence": {"type": "string", "enum": ["High", "Medium", "Low"]},
    "confidenceReason": {"type": "string"},
    "riskAnchor": {"type": "string"},
    "analyzedRole": {"type": "string"},
    "marketComparison": {"type": "string"},
    "executiveSummary": {"type": "string"},
    "signedAsIsOutcome": {"type": "string"},
    "contractSummary": {
      "type": "object",
      "properties": {
        "executiveSummary": {"type": "string"},
        "obligations": {"type": "array", "items": {"type": "string"}},
        "rights": {"type": "array", "items": {"type": "string"}},
        "commercials": {"type": "string"},
        "exit": {"type": "string"},
        "risk": {"type": "string"},
        "powerBalance": {"type": "string"},
        "top3Takeaways": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["executiveSummary", "obligations", "rights", "commercials", "exit", "risk", "powerBalance", "top3Takeaways"]
    },
    "factors": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "factor": {"type": "string"},
          "status": {"type": "string", "enum": ["Healthy", "Neutral", "Risky"]},
          "detail": {"type": "string"}
        },
        "required": ["factor", "status", "detail"]
      }
    },
    "missingClauses": {"type": "array", "items": {"type": "string"}},
    "negotiationMoves": {"type": "array", "items": {"type": "string"}},
    "coverage": {
      "type": "object",
      "properties": {
        "sectionsCovered": {"type": "integer"},
        "skippedSections": {"type": "array", "items": {"type": "string"}},
        "isComplete": {"type": "boolean"}
      },
      "required": ["sectionsCovered", "skippedSections", "isComplete"]
    },
    "topRisks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "technicalTerm": {"type": "string"},
          "riskType": {"type": "string"},
          "worstCase": {"type": "string"},
          "impact": {"type": "string"},
          "deviation": {"type": "string"},
          "action": {"type": "string"},
          "reference": {"type": "string"}
        },
        "required": ["title", "technicalTerm", "riskType", "worstCase", "impact", "deviation", "action", "reference"]
      }
    }
  },
  "required": ["score", "verdict", "confidence", "confidenceReason", "riskAnchor", "analyzedRole", "marketComparison", "executiveSummary", "signedAsIsOutcome", "contractSummary", "factors", "missingClauses", "negotiationMoves", "coverage", "topRisks"]
}`

const anchorSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "riskAnchor": {"type": "string"},
    "verdict": {"type": "string", "enum": ["Standard", "Negotiable", "Risky", "Dangerous"]}
  },
  "required": ["riskAnchor", "verdict"]
}`

var (
	compiledReportSchema = jsonschema.MustCompileString("report.json", reportSchema)
	compiledAnchorSchema = jsonschema.MustCompileString("anchor.json", anchorSchema)
)

func validateReport(v interface{}) error {
	if err := compiledReportSchema.Validate(v); err != nil {
		return fmt.Errorf("analysis response failed schema validation: %w", err)
	}
	return nil
}

func validateAnchor(v interface{}) error {
	if err := compiledAnchorSchema.Validate(v); err != nil {
		return fmt.Errorf("anchor response failed schema validation: %w", err)
	}
	return nil
}

// stripCodeFences removes the markdown fencing some model responses wrap
// around their JSON payload.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
