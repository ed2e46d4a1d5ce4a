package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"manualqa/internal/manual_qa/rag/interfaces"

	"github.com/ollama/ollama/api"
)

// OllamaProvider embeds single words through a local Ollama instance.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider creates an Ollama-backed embedding provider. An empty
// host falls back to the OLLAMA_HOST environment variable.
func NewOllamaProvider(host, model string) (*OllamaProvider, error) {
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
	return &OllamaProvider{client: client, model: model}, nil
}

// Vector returns the embedding of a single word.
func (p *OllamaProvider) Vector(ctx context.Context, word string) ([]float32, error) {
	resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  p.model,
		Prompt: word,
	})
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", word, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, nil
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

var _ interfaces.EmbeddingProvider = (*OllamaProvider)(nil)
