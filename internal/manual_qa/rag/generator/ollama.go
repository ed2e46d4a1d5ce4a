package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/internal/manual_qa/rag/schema"

	"github.com/ollama/ollama/api"
)

// Ollama generates answers through a locally hosted model. Structured output
// relies on Ollama's JSON mode plus schema instructions appended to the
// prompt, since local models do not enforce response schemas natively.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama-backed generator. An empty host falls back to
// the OLLAMA_HOST environment variable.
func NewOllama(host, model string) (*Ollama, error) {
	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}
	return &Ollama{client: client, model: model}, nil
}

// GenerateAnswer asks the model for a structured answer in JSON mode.
func (o *Ollama) GenerateAnswer(ctx context.Context, prompt string, s *schema.AnswerSchema) (*schema.Answer, error) {
	full := prompt + "\n\n" + s.PromptInstructions()
	raw, err := o.generate(ctx, full, json.RawMessage(`"json"`))
	if err != nil {
		return nil, err
	}
	return schema.ParseAnswer(raw)
}

// GenerateText asks the model for free-form text.
func (o *Ollama) GenerateText(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, prompt, nil)
}

func (o *Ollama) generate(ctx context.Context, prompt string, format json.RawMessage) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
		Format: format,
	}
	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return sb.String(), nil
}

// Probe checks that the Ollama server is reachable and that the configured
// model has been pulled. A reachable server without the model reports the
// downloading state so clients know a pull is still needed.
func (o *Ollama) Probe(ctx context.Context) (AvailabilityState, string) {
	list, err := o.client.List(ctx)
	if err != nil {
		return StateUnavailable, fmt.Sprintf("ollama server unreachable: %v", err)
	}
	for _, m := range list.Models {
		if m.Name == o.model || strings.HasPrefix(m.Name, o.model+":") {
			return StateAvailable, ""
		}
	}
	return StateDownloading, fmt.Sprintf("model %q is not present locally", o.model)
}

var (
	_ interfaces.AnswerGenerator = (*Ollama)(nil)
	_ Prober                     = (*Ollama)(nil)
)
