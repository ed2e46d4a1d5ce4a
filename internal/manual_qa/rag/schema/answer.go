package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"manualqa/internal/manual_qa/rag/ragerr"
)

// Confidence is the generator's self-reported confidence level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Answer is the structured result of a document-grounded generation.
type Answer struct {
	Answer             string     `json:"answer"`
	SourcePages        []int      `json:"source_pages"`
	Confidence         Confidence `json:"confidence"`
	SuggestedFollowUps []string   `json:"suggested_follow_ups,omitempty"`
}

// Property describes one field of a generation schema in a provider-neutral
// way. Generator implementations translate it into whatever their API wants
// (a genai.Schema, JSON-mode prompt instructions, ...).
type Property struct {
	Type        string
	Description string
	Enum        []string
	Items       *Property
}

// AnswerSchema is the schema object handed to a generator together with the
// prompt. Required lists the properties the generator must populate.
type AnswerSchema struct {
	Properties map[string]Property
	Required   []string
}

// DefaultAnswerSchema returns the schema every document-grounded query
// requests.
func DefaultAnswerSchema() *AnswerSchema {
	return &AnswerSchema{
		Properties: map[string]Property{
			"answer": {
				Type:        "string",
				Description: "The answer, grounded only in the provided excerpts.",
			},
			"source_pages": {
				Type:        "array",
				Description: "Manual page numbers the answer cites.",
				Items:       &Property{Type: "integer"},
			},
			"confidence": {
				Type: "string",
				Enum: []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)},
			},
			"suggested_follow_ups": {
				Type:        "array",
				Description: "Optional follow-up questions the user may want to ask.",
				Items:       &Property{Type: "string"},
			},
		},
		Required: []string{"answer", "confidence"},
	}
}

// PromptInstructions renders the schema as plain-text instructions for
// providers without native schema-constrained decoding.
func (s *AnswerSchema) PromptInstructions() string {
	var sb strings.Builder
	sb.WriteString("Respond with a single JSON object containing these fields:\n")
	for _, name := range []string{"answer", "source_pages", "confidence", "suggested_follow_ups"} {
		p, ok := s.Properties[name]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %q (%s", name, p.Type))
		if p.Items != nil {
			sb.WriteString(" of " + p.Items.Type)
		}
		sb.WriteString(")")
		if len(p.Enum) > 0 {
			sb.WriteString(": one of " + strings.Join(p.Enum, ", "))
		}
		if p.Description != "" {
			sb.WriteString(": " + p.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseAnswer validates raw generator output against the Answer contract.
// It is a pure function: bad input yields a *ragerr.SchemaParseError, never a
// partially-filled Answer.
func ParseAnswer(raw string) (*Answer, error) {
	raw = strings.TrimSpace(raw)
	// Some providers wrap JSON output in a markdown fence.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var a Answer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, &ragerr.SchemaParseError{Message: fmt.Sprintf("not valid JSON: %v", err)}
	}
	if strings.TrimSpace(a.Answer) == "" {
		return nil, &ragerr.SchemaParseError{Field: "answer", Message: "missing or empty"}
	}
	switch a.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return nil, &ragerr.SchemaParseError{Field: "confidence", Message: fmt.Sprintf("%q is not one of high, medium, low", a.Confidence)}
	}
	for _, p := range a.SourcePages {
		if p < 1 {
			return nil, &ragerr.SchemaParseError{Field: "source_pages", Message: fmt.Sprintf("page %d is not a positive page number", p)}
		}
	}
	return &a, nil
}
