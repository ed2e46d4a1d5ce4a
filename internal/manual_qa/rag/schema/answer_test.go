package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"manualqa/internal/manual_qa/rag/ragerr"
)

func TestParseAnswerValid(t *testing.T) {
	raw := `{
		"answer": "Change the oil every 10,000 km.",
		"source_pages": [12, 13],
		"confidence": "high",
		"suggested_follow_ups": ["Which oil grade should I use?"]
	}`
	a, err := ParseAnswer(raw)
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	if a.Answer != "Change the oil every 10,000 km." {
		t.Errorf("answer = %q", a.Answer)
	}
	if !reflect.DeepEqual(a.SourcePages, []int{12, 13}) {
		t.Errorf("source pages = %v", a.SourcePages)
	}
	if a.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q", a.Confidence)
	}
	if len(a.SuggestedFollowUps) != 1 {
		t.Errorf("follow ups = %v", a.SuggestedFollowUps)
	}
}

func TestParseAnswerStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"answer\": \"Use 5W-30.\", \"confidence\": \"medium\"}\n```"
	a, err := ParseAnswer(raw)
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	if a.Answer != "Use 5W-30." {
		t.Errorf("answer = %q", a.Answer)
	}
}

func TestParseAnswerRejections(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"not json", "the oil should be changed", ""},
		{"empty answer", `{"answer": "  ", "confidence": "high"}`, "answer"},
		{"missing answer", `{"confidence": "high"}`, "answer"},
		{"bad confidence", `{"answer": "x", "confidence": "certain"}`, "confidence"},
		{"missing confidence", `{"answer": "x"}`, "confidence"},
		{"zero page", `{"answer": "x", "confidence": "low", "source_pages": [0]}`, "source_pages"},
		{"negative page", `{"answer": "x", "confidence": "low", "source_pages": [-3]}`, "source_pages"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnswer(tc.raw)
			var schemaErr *ragerr.SchemaParseError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("err = %v, want a SchemaParseError", err)
			}
			if schemaErr.Field != tc.field {
				t.Errorf("field = %q, want %q", schemaErr.Field, tc.field)
			}
		})
	}
}

func TestPromptInstructionsNameEveryField(t *testing.T) {
	s := DefaultAnswerSchema()
	instructions := s.PromptInstructions()
	for _, field := range []string{"answer", "source_pages", "confidence", "suggested_follow_ups"} {
		if !strings.Contains(instructions, field) {
			t.Errorf("instructions missing field %q:\n%s", field, instructions)
		}
	}
	for _, level := range []string{"high", "medium", "low"} {
		if !strings.Contains(instructions, level) {
			t.Errorf("instructions missing confidence level %q", level)
		}
	}
}
