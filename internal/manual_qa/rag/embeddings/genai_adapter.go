// Package embeddings provides word-level EmbeddingProvider implementations.
// A provider returning (nil, nil) simply has no vector for the word; the
// retriever degrades to lexical overlap in that case.
package embeddings

import (
	"context"
	"fmt"

	"manualqa/internal/manual_qa/rag/interfaces"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleProvider embeds single words through the Gemini embedding API.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

// NewGoogleProvider creates a Gemini-backed embedding provider.
func NewGoogleProvider(ctx context.Context, apiKey, model string) (*GoogleProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleProvider{client: client, model: model}, nil
}

// Vector returns the embedding of a single word.
func (p *GoogleProvider) Vector(ctx context.Context, word string) ([]float32, error) {
	em := p.client.EmbeddingModel(p.model)
	res, err := em.EmbedContent(ctx, genai.Text(word))
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", word, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, nil
	}
	return res.Embedding.Values, nil
}

var _ interfaces.EmbeddingProvider = (*GoogleProvider)(nil)
