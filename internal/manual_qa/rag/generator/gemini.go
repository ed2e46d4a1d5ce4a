package generator

import (
	"context"
	"fmt"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/schema"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini generates answers through the Google Gemini API, using constrained
// JSON output so responses parse against the answer schema.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, modelName: model}, nil
}

// GenerateAnswer asks the model for a structured answer constrained by the
// given schema.
func (g *Gemini) GenerateAnswer(ctx context.Context, prompt string, s *schema.AnswerSchema) (*schema.Answer, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.GenerationConfig.ResponseMIMEType = "application/json"
	m.GenerationConfig.ResponseSchema = toGenaiSchema(s)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return schema.ParseAnswer(responseText(resp))
}

// GenerateText asks the model for free-form text.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp), nil
}

// Probe verifies the API key and model with a cheap token-count call.
func (g *Gemini) Probe(ctx context.Context) (AvailabilityState, string) {
	m := g.client.GenerativeModel(g.modelName)
	if _, err := m.CountTokens(ctx, genai.Text("ping")); err != nil {
		return StateUnavailable, err.Error()
	}
	return StateAvailable, ""
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

// toGenaiSchema converts the answer schema into the genai constrained-output
// schema format.
func toGenaiSchema(s *schema.AnswerSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = toGenaiProperty(p)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}

func toGenaiProperty(p schema.Property) *genai.Schema {
	out := &genai.Schema{
		Type:        genaiType(p.Type),
		Description: p.Description,
		Enum:        p.Enum,
	}
	if p.Items != nil {
		out.Items = toGenaiProperty(*p.Items)
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

var (
	_ interfaces.AnswerGenerator = (*Gemini)(nil)
	_ Prober                     = (*Gemini)(nil)
)
